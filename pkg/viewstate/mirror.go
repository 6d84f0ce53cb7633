package viewstate

// ValueSetter is a text input whose displayed value can be replaced.
type ValueSetter interface {
	SetValue(string)
}

// Mirror keeps several search inputs for the same logical query showing
// the same text. Mirroring never commits a query; only the debounced
// SetFreeText does.
type Mirror struct {
	inputs []ValueSetter
	value  string
}

// NewMirror groups inputs.
func NewMirror(inputs ...ValueSetter) *Mirror {
	return &Mirror{inputs: inputs}
}

// Input records that input src now shows text and copies it to the others.
func (m *Mirror) Input(src int, text string) {
	m.value = text
	for i, in := range m.inputs {
		if i != src {
			in.SetValue(text)
		}
	}
}

// Value returns the text currently shown by every input.
func (m *Mirror) Value() string {
	return m.value
}

// Clear empties every input.
func (m *Mirror) Clear() {
	m.value = ""
	for _, in := range m.inputs {
		in.SetValue("")
	}
}
