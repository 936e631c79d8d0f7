package render

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	engine, err := NewTemplateEngine()
	require.NoError(t, err)
	return NewRenderer(engine)
}

func decode(t *testing.T, body string) *pipeline.Response {
	t.Helper()
	var resp pipeline.Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{`<script>alert("x")</script>`, "&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;"},
		{"Tom & Jerry's", "Tom &amp; Jerry&#039;s"},
		{"&lt;", "&amp;lt;"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "Escape(%q)", tt.in)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "as is <b>", Stringify("as is <b>"))
	assert.Equal(t, "{\n  \"x\": 1\n}", Stringify(map[string]int{"x": 1}))
	assert.Equal(t, "\"<b>\"", Stringify(json.RawMessage(`"<b>"`)))
	assert.Equal(t, "[\n  \"<b>\"\n]", Stringify([]string{"<b>"}), "encoder must not escape HTML itself")
	assert.Equal(t, "null", Stringify(nil))
}

func TestEscapeValue(t *testing.T) {
	assert.Equal(t, "{\n  &quot;tag&quot;: &quot;&lt;i&gt;&quot;\n}", EscapeValue(map[string]string{"tag": "<i>"}))
}

func TestStageDump(t *testing.T) {
	resp := decode(t, `{"pipeline_stages":[
		{"agent":"A","output":{"x":1},"error":"ignored"},
		{"agent":"B","error":{"code":500}},
		{"agent":"C","note":"n"},
		{"agent":"D","output":"plain"}
	]}`)

	assert.Equal(t, "{\n  \"x\": 1\n}", StageDump(resp.PipelineStages[0]))
	assert.Equal(t, "{\n  \"code\": 500\n}", StageDump(resp.PipelineStages[1]))
	assert.Equal(t, "{\n  \"agent\": \"C\",\n  \"note\": \"n\"\n}", StageDump(resp.PipelineStages[2]))
	assert.Equal(t, "\"plain\"", StageDump(resp.PipelineStages[3]))
}

func TestBuildFinalResponse(t *testing.T) {
	r := newRenderer(t)

	view, err := r.Build(decode(t, `{"final_response":"No issues <found>"}`))
	require.NoError(t, err)

	assert.Contains(t, string(view.Answer), `<pre class="final-answer">No issues &lt;found&gt;</pre>`)
	assert.Empty(t, view.Stages)
	assert.Empty(t, view.Error)
}

func TestBuildErrorMessage(t *testing.T) {
	r := newRenderer(t)

	view, err := r.Build(decode(t, `{"error_message":"agent 'Scanner' failed"}`))
	require.NoError(t, err)

	assert.Contains(t, string(view.Answer), "error-card")
	assert.Contains(t, string(view.Answer), "agent &#039;Scanner&#039; failed")
	assert.NotContains(t, string(view.Answer), "final-answer")
}

func TestBuildFinalWinsOverErrorMessage(t *testing.T) {
	r := newRenderer(t)

	view, err := r.Build(decode(t, `{"final_response":"ok","error_message":"ignored"}`))
	require.NoError(t, err)

	assert.Contains(t, string(view.Answer), "final-answer")
	assert.NotContains(t, string(view.Answer), "ignored")
}

func TestBuildSingleStage(t *testing.T) {
	r := newRenderer(t)

	view, err := r.Build(decode(t, `{"pipeline_stages":[{"agent":"A","output":{"x":1}}]}`))
	require.NoError(t, err)

	stages := string(view.Stages)
	assert.Equal(t, 1, strings.Count(stages, `class="card stage-card"`))
	assert.Contains(t, stages, "<h3>A</h3>")
	assert.Contains(t, stages, "<pre>{\n  &quot;x&quot;: 1\n}</pre>")
	assert.Empty(t, view.Answer, "stages render independently of the answer region")
}

func TestBuildEmptyStages(t *testing.T) {
	r := newRenderer(t)

	view, err := r.Build(decode(t, `{"final_response":"done","pipeline_stages":[]}`))
	require.NoError(t, err)
	assert.Empty(t, view.Stages)
}

func TestBuildNeverEmitsRawMarkup(t *testing.T) {
	r := newRenderer(t)

	view, err := r.Build(decode(t, `{
		"final_response":"<script>alert('x')</script>",
		"pipeline_stages":[{"agent":"<script>evil</script>","output":"<script>alert(1)</script>"}]
	}`))
	require.NoError(t, err)

	all := string(view.Answer) + string(view.Stages)
	assert.NotContains(t, all, "<script>")
	assert.Contains(t, all, "&lt;script&gt;alert(&#039;x&#039;)&lt;/script&gt;")
	assert.Contains(t, all, "<h3>&lt;script&gt;evil&lt;/script&gt;</h3>")
}

func TestStageCardsUnnamed(t *testing.T) {
	resp := decode(t, `{"pipeline_stages":[{"output":1},{"agent":"Named","output":2}]}`)

	cards := StageCards(resp.PipelineStages)
	require.Len(t, cards, 2)
	assert.Equal(t, "Stage 1", string(cards[0].Label))
	assert.Equal(t, "Named", string(cards[1].Label))
}

func TestFailure(t *testing.T) {
	r := newRenderer(t)

	view, err := r.Failure(`Error: 502 Bad Gateway <"upstream">`)
	require.NoError(t, err)

	assert.Contains(t, string(view.Error), `role="alert"`)
	assert.Contains(t, string(view.Error), "Error: 502 Bad Gateway &lt;&quot;upstream&quot;&gt;")
	assert.Empty(t, view.Answer)
	assert.Empty(t, view.Stages)
}

func TestPage(t *testing.T) {
	r := newRenderer(t)
	view, err := r.Build(decode(t, `{"final_response":"done"}`))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, r.Page(w, PageData{
		Input:             `</textarea><script>x</script>`,
		Alert:             "Please enter some text.",
		View:              view,
		Nonce:             "abc123",
		EmptyInputMessage: "Please enter some text.",
	}))

	body := w.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "<title>"+PageTitle+"</title>")
	assert.Contains(t, body, `<script nonce="abc123">`)
	assert.Contains(t, body, `id="alert-region"`)
	assert.Contains(t, body, `<pre class="final-answer">done</pre>`)
	assert.Contains(t, body, `<button id="submit-button" type="submit">Submit</button>`)
	assert.Contains(t, body, `id="busy-indicator" class="busy" hidden`)
	assert.NotContains(t, body, "</textarea><script>x</script>")
}

func TestRenderToUnknownPage(t *testing.T) {
	engine, err := NewTemplateEngine()
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, engine.RenderTo(&buf, "missing.html", nil))
}
