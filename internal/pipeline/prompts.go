package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sells-group/study-extract/internal/model"
)

// ExtractionPrompt asks for every schema field of one article as a single
// JSON object keyed by column label.
func ExtractionPrompt(schema *model.Schema) string {
	var b strings.Builder
	b.WriteString("Extract the following information from the attached PDF. Return the result as a valid JSON object where keys are the 'Column Label' and values are the extracted text. If information is missing, use null.\n\n")

	b.WriteString("--- Study Characteristics ---\n")
	for _, f := range schema.StudyCharacteristics {
		writeField(&b, f)
	}
	b.WriteString("\n--- Outcomes ---\n")
	for _, f := range schema.PromptOutcomes() {
		writeField(&b, f)
	}

	b.WriteString("\n\nRule: Convert as many percentage numbers as possible into whole numbers (as ratios, mean ± SD, etc.).")
	b.WriteString("\n\nCRUCIAL: Verify the extracted data against the PDF one more time before outputting to ensure accuracy. Return ONLY the JSON object, no markdown formatting.")
	return b.String()
}

func writeField(b *strings.Builder, f model.SchemaField) {
	if f.Label == "" || f.Label == model.SourceColumn {
		return
	}
	b.WriteString("- ")
	b.WriteString(f.Label)
	b.WriteString(": ")
	b.WriteString(f.Description)
	b.WriteString("\n")
}

const verificationInstructions = `

### INSTRUCTIONS ###
1. Review the attached PDF carefully.
2. For each field in the provided JSON, check if the value is correct.
3. If a value is incorrect or incomplete, provide the correct information found in the PDF.
4. If you find any discrepancies, return your findings in the following JSON format:
{
  "discrepancies": [
    {
      "field": "Field Name",
      "extracted_value": "Value provided in prompt",
      "correct_value": "Correct value from PDF",
      "severity": "CRITICAL", // or "MINOR"
      "description": "Explanation of the discrepancy"
    }
  ],
  "status": "FAIL"
}

### SEVERITY CRITERIA ###
- MINOR: Formatting issues (e.g. '50 %' vs '50%'), synonyms (e.g. 'Male' vs 'Men'), or rounding differences less than 1%.
- CRITICAL: Different numbers (>1% variance), swapped data, missing data that exists in text, or hallucinations.
5. CRITICAL: If all information is 100% correct AND no additions/corrections are needed, return:
{
  "status": "PASS",
  "discrepancies": []
}
6. CRITICAL: If there is even a MINOR discrepancy, set status to 'FAIL' and list it with appropriate severity.

Return ONLY the JSON object.`

// VerificationPrompt asks the agent to check the non-null fields of rec
// against the attached article.
func VerificationPrompt(rec model.DocumentRecord) string {
	var b strings.Builder
	b.WriteString("I have extracted the following data from the attached PDF study. Please verify the accuracy of each field against the PDF content.\n\n")
	b.WriteString("### DATA TO VERIFY ###\n")
	b.WriteString(indentedObject(rec.NonNull()))
	b.WriteString(verificationInstructions)
	return b.String()
}

// indentedObject renders fields as a two-space indented JSON object in field
// order.
func indentedObject(fields []model.FieldValue) string {
	if len(fields) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, f := range fields {
		key, _ := json.Marshal(f.Name)
		val, _ := json.Marshal(model.Display(f.Value))
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}")
	return buf.String()
}
