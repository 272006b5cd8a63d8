package domain

// LibraryEntry describes a preloaded document served from the library directory.
type LibraryEntry struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Filename string `json:"filename" yaml:"filename"`
	Category string `json:"category,omitempty" yaml:"category"`
}
