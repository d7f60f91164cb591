package model

// CategoryRule maps an issue category to the keywords that select it.
type CategoryRule struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// CategoryConfig is the ordered category table plus the fallback used when
// no keyword matches. Order matters: ties go to the earlier rule.
type CategoryConfig struct {
	Misc       string
	Categories []CategoryRule
}
