package domain

import "strings"

// PrefixRule maps a case-insensitive source filename prefix to the acronym and
// form identifier used when remapping that file.
type PrefixRule struct {
	Prefix  string `yaml:"prefix" json:"prefix"`
	Acronym string `yaml:"acronym" json:"acronym"`
	FormID  string `yaml:"form_id" json:"formId"`
}

// SourceIdentity is the acronym and form inferred for one source file.
// An empty Acronym means the file is matched but never processed.
type SourceIdentity struct {
	Acronym string
	FormID  string
}

// DefaultPrefixRules are the built-in source conventions.
func DefaultPrefixRules() []PrefixRule {
	return []PrefixRule{
		{Prefix: "APS", Acronym: "aps", FormID: "form_3"},
		{Prefix: "MEDSTAR", Acronym: "ms", FormID: "form_2"},
	}
}

// IdentifySource returns the identity of the first rule whose prefix matches
// fileName, ignoring case. Without a match the acronym is empty and the form
// is fallbackForm.
func IdentifySource(fileName string, rules []PrefixRule, fallbackForm string) SourceIdentity {
	for _, r := range rules {
		if len(fileName) >= len(r.Prefix) && strings.EqualFold(fileName[:len(r.Prefix)], r.Prefix) {
			return SourceIdentity{Acronym: r.Acronym, FormID: r.FormID}
		}
	}
	return SourceIdentity{FormID: fallbackForm}
}

// BaseName truncates a filename at its first ".".
func BaseName(fileName string) string {
	base, _, _ := strings.Cut(fileName, ".")
	return base
}
