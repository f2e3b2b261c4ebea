package prompt

// PromptVideo is one video as the model sees it. Index is 1-based and matches
// the image order in the vision prompt.
type PromptVideo struct {
	Index       int
	Description string
	Views       string
	Likes       string
	Author      string
	Duration    int
}

type SystemPromptData struct {
	FormatCount int
}

type VisionPromptData struct {
	Niche       string
	Platform    string
	ImageCount  int
	FormatCount int
	Videos      []PromptVideo
}

type TextPromptData struct {
	Niche       string
	Platform    string
	FormatCount int
	Videos      []PromptVideo
}
