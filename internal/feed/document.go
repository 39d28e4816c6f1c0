package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Member is one key/value pair of a JSON object with the value kept raw, so
// unknown fields survive a parse/marshal round trip byte-for-byte.
type Member struct {
	Key string
	Raw json.RawMessage
}

// Endpoint is one configured video-search API.
type Endpoint struct {
	Key     string
	Name    string
	Address string
	// members holds the full original entry object in source order; Address
	// edits are applied to the "api" member on marshal.
	members []Member
}

// Document is a parsed endpoint document. Top-level member order and all
// unrecognized fields are preserved for re-serialization.
type Document struct {
	Entries []Endpoint
	members []Member
	hash    string
}

// Hash returns the SHA-256 of the source bytes this document was parsed from.
func (d *Document) Hash() string { return d.hash }

func parseMembers(data []byte) ([]Member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var members []Member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		members = append(members, Member{Key: key, Raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func marshalMembers(members []Member) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(m.Key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.Raw)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// ParseDocument parses an endpoint document of the form
// {"api_site": {key: {"name": ..., "api": ...}, ...}, ...}.
// A missing or malformed api_site member is a parse error; extra top-level
// members and extra entry fields are carried through untouched.
func ParseDocument(data []byte) (*Document, error) {
	top, err := parseMembers(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	doc := &Document{members: top, hash: contentHash(data)}

	var sites []Member
	found := false
	for _, m := range top {
		if m.Key != "api_site" {
			continue
		}
		found = true
		sites, err = parseMembers(m.Raw)
		if err != nil {
			return nil, fmt.Errorf("parse api_site: %w", err)
		}
	}
	if !found {
		return nil, fmt.Errorf("parse document: missing api_site member")
	}

	for _, site := range sites {
		fields, err := parseMembers(site.Raw)
		if err != nil {
			return nil, fmt.Errorf("parse api_site entry %q: %w", site.Key, err)
		}
		ep := Endpoint{Key: site.Key, members: fields}
		for _, f := range fields {
			switch f.Key {
			case "name":
				if err := json.Unmarshal(f.Raw, &ep.Name); err != nil {
					return nil, fmt.Errorf("entry %q: name: %w", site.Key, err)
				}
			case "api":
				if err := json.Unmarshal(f.Raw, &ep.Address); err != nil {
					return nil, fmt.Errorf("entry %q: api: %w", site.Key, err)
				}
			}
		}
		doc.Entries = append(doc.Entries, ep)
	}

	return doc, nil
}

// MarshalWith serializes the document with the given entries substituted for
// the api_site member. Entries must correspond positionally to doc.Entries;
// only the "api" field of each entry is rewritten, everything else is emitted
// verbatim in source order.
func (d *Document) MarshalWith(entries []Endpoint) []byte {
	siteMembers := make([]Member, 0, len(entries))
	for _, ep := range entries {
		fields := make([]Member, len(ep.members))
		copy(fields, ep.members)
		for i, f := range fields {
			if f.Key == "api" {
				addr, _ := json.Marshal(ep.Address)
				fields[i] = Member{Key: "api", Raw: addr}
			}
		}
		siteMembers = append(siteMembers, Member{Key: ep.Key, Raw: marshalMembers(fields)})
	}

	top := make([]Member, len(d.members))
	copy(top, d.members)
	for i, m := range top {
		if m.Key == "api_site" {
			top[i] = Member{Key: "api_site", Raw: marshalMembers(siteMembers)}
		}
	}
	return marshalMembers(top)
}

// MarshalRaw serializes the document as loaded.
func (d *Document) MarshalRaw() []byte {
	return d.MarshalWith(d.Entries)
}
