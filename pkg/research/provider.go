package research

import "context"

// Result is the structured outcome of one research completion: the agent
// pipeline's text plus the sources it cited and its confidence in them.
type Result struct {
	Content    string   `json:"content"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Provider defines the contract to the external research pipeline. The
// collaboration core only ever asks it to complete a query; planning,
// validation, and summarization stay behind this boundary.
type Provider interface {
	Complete(ctx context.Context, query string) (*Result, error)
}
