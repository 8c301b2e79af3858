package settings

import "encoding/json"

// Document is the site-wide configuration blob (brand, navigation,
// homepage, footer). It is always replaced as a whole.
type Document map[string]any

func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return Document{}
	}
	var out Document
	if err := json.Unmarshal(b, &out); err != nil || out == nil {
		return Document{}
	}
	return out
}
