package render

import "net/http"

// PageTitle is shown in the browser tab and the page heading.
const PageTitle = "Pipeline Console"

// PageData is everything the console page template needs.
type PageData struct {
	Title string
	// Input is the text to put back in the textarea.
	Input string
	// Alert is the validation message, shown above the form.
	Alert string
	View  View
	Nonce string
	// EmptyInputMessage is what the in-page script alerts on empty input.
	EmptyInputMessage string
}

// Page renders the console page.
func (r *Renderer) Page(w http.ResponseWriter, data PageData) error {
	if data.Title == "" {
		data.Title = PageTitle
	}
	return r.engine.Render(w, "index.html", data)
}
