package extract

// FieldType is the internal taxonomy for structured fields. Form-field
// types coming from outside (e.g. HTML input types) are remapped onto
// these before any index lookup.
type FieldType string

const (
	FieldEmail      FieldType = "email"
	FieldPhone      FieldType = "phone"
	FieldName       FieldType = "name"
	FieldFullName   FieldType = "full_name"
	FieldAddress    FieldType = "address"
	FieldLinkedIn   FieldType = "linkedin"
	FieldWebsite    FieldType = "website"
	FieldGitHub     FieldType = "github"
	FieldSkills     FieldType = "skills"
	FieldEducation  FieldType = "education"
	FieldExperience FieldType = "experience"
	FieldDate       FieldType = "date"
)

// AllFieldTypes returns the taxonomy in evaluation order.
func AllFieldTypes() []FieldType {
	return []FieldType{
		FieldEmail, FieldPhone, FieldName, FieldFullName, FieldAddress,
		FieldLinkedIn, FieldWebsite, FieldGitHub, FieldSkills,
		FieldEducation, FieldExperience, FieldDate,
	}
}

// Field is one extracted candidate value with its provenance window.
type Field struct {
	Type       FieldType `json:"field_type"`
	Value      string    `json:"value"`
	Context    string    `json:"context"`
	Confidence float64   `json:"confidence"`
	Position   int       `json:"position"`
}
