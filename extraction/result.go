package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Result is the record extracted from one report. Absent fields are empty.
type Result struct {
	VisitaTecnicaFecha string `json:"visita_tecnica_fecha"`
	PozosAfectados     string `json:"pozos_afectados"`
	Antecedentes       string `json:"antecedentes"`
}

// ResultSchema accepts one JSON object whose known keys, when present,
// hold strings. Other keys are tolerated and dropped by Parse.
const ResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "visita_tecnica_fecha": {"type": "string"},
    "pozos_afectados": {"type": "string"},
    "antecedentes": {"type": "string"}
  }
}`

var resultSchema = jsonschema.MustCompileString("result.json", ResultSchema)

// ErrMalformed wraps every Parse failure.
var ErrMalformed = errors.New("extraction: malformed model output")

// Parse strips fences from a model reply, checks it against ResultSchema
// and decodes it. Nothing is repaired: any deviation is an error.
func Parse(reply string) (Result, error) {
	body := StripFences(reply)
	if body == "" {
		return Result{}, fmt.Errorf("%w: empty reply", ErrMalformed)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformed)
	}
	if err := resultSchema.Validate(doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// Keys match exactly; the schema has already typed them.
	fields := doc.(map[string]any)
	str := func(key string) string {
		v, _ := fields[key].(string)
		return v
	}
	return Result{
		VisitaTecnicaFecha: str("visita_tecnica_fecha"),
		PozosAfectados:     str("pozos_afectados"),
		Antecedentes:       str("antecedentes"),
	}, nil
}
