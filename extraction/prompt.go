// Package extraction turns located report sections into the three-field
// record: it builds the model prompt and validates what comes back.
package extraction

import "strings"

const textPlaceholder = "{relevant_text}"

// promptTemplate is the fixed instruction sent with every document.
// The rules refer to the numerals isolated by the sections package.
const promptTemplate = `Analiza el siguiente texto completo y devuelve SOLO un JSON con esta estructura:

{
"visita_tecnica_fecha": "YYYY-MM-DD[, YYYY-MM-DD]", 
"pozos_afectados": "PZ1, PZ2, PO-1", 
"antecedentes": "Concepto técnico 599 del 2014, 2014ER216333"
}

REGLAS:
1. En el numeral 3.2 (VISITA TÉCNICA), identifica las fechas de la visita en formato "YYYY-MM-DD". Si hay más de una, sepáralas por coma y espacio.
2. En el numeral 4.1, bajo el subtítulo "Ubicación de los pozos que presentan producto en fase libre, iridisciencia y/o olor", extrae solo los nombres de los pozos (ejemplo: PO-1, PZ1), en un string separado por coma.
3. En el numeral 4.1.3, extrae antecedentes relacionados con requerimientos, conceptos técnicos, autos o radicados mencionados como "se solicitó", "se requirió", "requerimiento", etc. Incluye identificador y fecha si existe.

NO incluyas explicación ni texto adicional, solo el JSON.

Texto relevante:
` + textPlaceholder + "\n"

// BuildPrompt embeds the section text in the instruction template.
func BuildPrompt(sectionText string) string {
	return strings.Replace(promptTemplate, textPlaceholder, sectionText, 1)
}
