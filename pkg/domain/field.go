package domain

// Field identifies one answer of the lead form.
// Every step identifier is also a Field.
type Field string

const (
	FieldNom          Field = "nom"
	FieldPrenom       Field = "prenom"
	FieldTelephone    Field = "telephone"
	FieldEmail        Field = "email"
	FieldTypePersonne Field = "typePersonne"
	FieldClasse       Field = "classe"
	FieldSource       Field = "source"
)

// Fields lists every submitted field, in submission order.
var Fields = []Field{
	FieldNom,
	FieldPrenom,
	FieldTelephone,
	FieldEmail,
	FieldTypePersonne,
	FieldClasse,
	FieldSource,
}

// PersonalFields hold personally identifying data.
// They are masked in logs and scrubbed from archived sessions.
var PersonalFields = []Field{
	FieldNom,
	FieldPrenom,
	FieldTelephone,
	FieldEmail,
}

// Valid reports whether f is one of the declared fields.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Personal reports whether f holds personally identifying data.
func (f Field) Personal() bool {
	for _, p := range PersonalFields {
		if f == p {
			return true
		}
	}
	return false
}
