package ontology

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agenthands/ontograph/internal/core/errs"
)

// Wildcard as a relationship target means the target type is read per row.
const Wildcard = "*"

// Provenance fields are always accepted on a node alongside its declared properties.
const (
	SourceField     = "_source"
	HashField       = "_hash"
	IngestedAtField = "_ingested_at"
)

var provenanceFields = map[string]bool{
	SourceField:     true,
	HashField:       true,
	IngestedAtField: true,
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether name is safe to use as a label, relationship type or field.
func IsIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

type ObjectType struct {
	Name       string
	Key        string
	Properties []string
	Dataset    string
}

// DatasetName is the file the type is ingested from: the explicit binding, or the
// lowercase pluralized type name.
func (o *ObjectType) DatasetName() string {
	if o.Dataset != "" {
		return o.Dataset
	}
	return strings.ToLower(o.Name) + "s.csv"
}

// HasField reports whether field is the key or a declared property.
func (o *ObjectType) HasField(field string) bool {
	if field == o.Key {
		return true
	}
	for _, p := range o.Properties {
		if p == field {
			return true
		}
	}
	return false
}

type RelationshipType struct {
	Name       string
	From       string
	To         string
	Dataset    string
	Properties []string
}

// Polymorphic reports whether each row names its own target type.
func (r *RelationshipType) Polymorphic() bool {
	return r.To == Wildcard
}

// Schema is the loaded ontology. It is immutable after Load and safe for
// concurrent readers.
type Schema struct {
	Version          int
	Objects          map[string]*ObjectType
	Relationships    map[string]*RelationshipType
	SecurityMarkings map[string][]string
}

type document struct {
	Version int `yaml:"version"`
	Objects map[string]struct {
		Key        string   `yaml:"key"`
		Properties []string `yaml:"properties"`
		Dataset    string   `yaml:"dataset"`
	} `yaml:"objects"`
	Relationships map[string]struct {
		From       string   `yaml:"from"`
		To         string   `yaml:"to"`
		Dataset    string   `yaml:"dataset"`
		Properties []string `yaml:"properties"`
	} `yaml:"relationships"`
	SecurityMarkings map[string][]string `yaml:"security_markings"`
}

// Load reads and validates the ontology document at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	return Parse(data)
}

// Parse decodes and validates an ontology document.
func Parse(data []byte) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &errs.SchemaError{Reason: fmt.Sprintf("invalid document: %v", err)}
	}
	if len(doc.Objects) == 0 {
		return nil, &errs.SchemaError{Path: "objects", Reason: "no object types declared"}
	}

	s := &Schema{
		Version:          doc.Version,
		Objects:          make(map[string]*ObjectType, len(doc.Objects)),
		Relationships:    make(map[string]*RelationshipType, len(doc.Relationships)),
		SecurityMarkings: doc.SecurityMarkings,
	}
	if s.Version == 0 {
		s.Version = 1
	}

	for name, def := range doc.Objects {
		path := "objects." + name
		if !IsIdentifier(name) {
			return nil, &errs.SchemaError{Path: path, Reason: "type name is not an identifier"}
		}
		if def.Key == "" {
			return nil, &errs.SchemaError{Path: path + ".key", Reason: "key is required"}
		}
		if !IsIdentifier(def.Key) {
			return nil, &errs.SchemaError{Path: path + ".key", Reason: fmt.Sprintf("key %q is not an identifier", def.Key)}
		}
		for _, p := range def.Properties {
			if !IsIdentifier(p) {
				return nil, &errs.SchemaError{Path: path + ".properties", Reason: fmt.Sprintf("property %q is not an identifier", p)}
			}
		}
		s.Objects[name] = &ObjectType{
			Name:       name,
			Key:        def.Key,
			Properties: def.Properties,
			Dataset:    def.Dataset,
		}
	}

	for name, def := range doc.Relationships {
		path := "relationships." + name
		if !IsIdentifier(name) {
			return nil, &errs.SchemaError{Path: path, Reason: "relationship name is not an identifier"}
		}
		if _, ok := s.Objects[def.From]; !ok {
			return nil, &errs.SchemaError{Path: path + ".from", Reason: fmt.Sprintf("undeclared object type %q", def.From)}
		}
		if def.To != Wildcard {
			if _, ok := s.Objects[def.To]; !ok {
				return nil, &errs.SchemaError{Path: path + ".to", Reason: fmt.Sprintf("undeclared object type %q", def.To)}
			}
		}
		for _, p := range def.Properties {
			if !IsIdentifier(p) {
				return nil, &errs.SchemaError{Path: path + ".properties", Reason: fmt.Sprintf("property %q is not an identifier", p)}
			}
		}
		s.Relationships[name] = &RelationshipType{
			Name:       name,
			From:       def.From,
			To:         def.To,
			Dataset:    def.Dataset,
			Properties: def.Properties,
		}
	}

	return s, nil
}

// ObjectType returns the named object type or a NotFoundError.
func (s *Schema) ObjectType(name string) (*ObjectType, error) {
	if o, ok := s.Objects[name]; ok {
		return o, nil
	}
	return nil, &errs.NotFoundError{Kind: "object type", Name: name}
}

// RelationshipType returns the named relationship type or a NotFoundError.
func (s *Schema) RelationshipType(name string) (*RelationshipType, error) {
	if r, ok := s.Relationships[name]; ok {
		return r, nil
	}
	return nil, &errs.NotFoundError{Kind: "relationship type", Name: name}
}

// Labels returns the object type names in sorted order.
func (s *Schema) Labels() []string {
	out := make([]string, 0, len(s.Objects))
	for name := range s.Objects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RelationshipNames returns the relationship type names in sorted order.
func (s *Schema) RelationshipNames() []string {
	out := make([]string, 0, len(s.Relationships))
	for name := range s.Relationships {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fields returns every key and declared property name across all types.
func (s *Schema) Fields() []string {
	seen := make(map[string]bool)
	for _, o := range s.Objects {
		seen[o.Key] = true
		for _, p := range o.Properties {
			seen[p] = true
		}
	}
	for _, r := range s.Relationships {
		for _, p := range r.Properties {
			seen[p] = true
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ValidateEntityData checks row against the contract of entityType. It fails when
// the key field is absent or empty and otherwise returns the names of fields the
// type does not declare, so the caller can log them. Provenance fields are never
// reported.
func (s *Schema) ValidateEntityData(entityType string, row map[string]string) ([]string, error) {
	o, err := s.ObjectType(entityType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(row[o.Key]) == "" {
		return nil, &errs.ValidationError{Type: entityType, Field: o.Key, Reason: "missing primary key"}
	}

	var unknown []string
	for field := range row {
		if provenanceFields[field] || o.HasField(field) {
			continue
		}
		unknown = append(unknown, field)
	}
	sort.Strings(unknown)
	return unknown, nil
}
