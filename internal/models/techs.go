package models

import (
	"encoding/json"
	"strings"
)

// NormalizeTechs turns raw tag input into the canonical form used for storage and filtering:
// comma separated values are split, trimmed, lowercased, and deduplicated keeping the first
// occurrence. Order is preserved because the client displays the list as typed.
func NormalizeTechs(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, chunk := range raw {
		for _, t := range strings.Split(chunk, ",") {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// TechsMatch reports whether have contains at least one of want.
// An empty want matches everything. Both sides must already be normalised.
func TechsMatch(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// TechList accepts either a JSON array of strings or a single comma separated string,
// and always decodes into normalised tags.
type TechList []string

func (l *TechList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*l = NormalizeTechs(list...)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*l = NormalizeTechs(s)
	return nil
}
