package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/study-extract/internal/model"
)

// DefaultStudyCharacteristics describes the study-level columns.
var DefaultStudyCharacteristics = []model.SchemaField{
	{Label: "Study ID", Description: "First author + year (e.g., Barkyoumb 2025)"},
	{Label: "Journal", Description: "Source of publication"},
	{Label: "Country/Region", Description: "Study location(s)"},
	{Label: "Study Design", Description: "Retrospective cohort, RCT, meta-analysis, etc."},
	{Label: "Database/Setting", Description: "National claims, single-center, multicenter, etc."},
	{Label: "Sample Size (Total)", Description: "Number of patients included"},
	{Label: "GLP-1 RA Cohort Size", Description: "Number of patients exposed"},
	{Label: "Control Cohort Size", Description: "Number of patients not exposed"},
	{Label: "Age (mean ± SD)", Description: "Baseline age"},
	{Label: "Sex (% male/female)", Description: "Gender distribution"},
	{Label: "BMI (mean ± SD)", Description: "Baseline BMI"},
	{Label: "Diabetes Status (%)", Description: "% with T2DM"},
	{Label: "Other Comorbidities", Description: "Hypertension, CAD, CKD, smoking, etc."},
	{Label: "GLP-1 Agent(s)", Description: "Semaglutide, liraglutide, tirzepatide, etc."},
	{Label: "Exposure Definition", Description: "Pre-op, peri-op, post-op; duration window"},
	{Label: "Dosing Regimen", Description: "Weekly vs daily, dose escalation"},
	{Label: "Surgical Procedure", Description: "ACDF, PCF, TLIF, PLIF, lumbar fusion, decompression"},
	{Label: "Levels Fused", Description: "Single vs multilevel"},
	{Label: "Follow-up Duration", Description: "90 days, 6 months, 1 year, 2 years, etc."},
	{Label: "Matching/Adjustment", Description: "Propensity score, covariates controlled"},
	{Label: "Risk of Bias", Description: "ROBINS-I, NOS, etc."},
}

// DefaultOutcomes describes the outcome columns.
var DefaultOutcomes = []model.SchemaField{
	{Label: "Surgical Site Infection (SSI)", Description: "Yes/No, % incidence"},
	{Label: "Wound Complications", Description: "Dehiscence, delayed healing"},
	{Label: "Venous Thromboembolism (VTE)", Description: "DVT/PE incidence"},
	{Label: "Mortality", Description: "30-day, 90-day, 1-year"},
	{Label: "Readmission", Description: "30-day, 90-day, 1-year"},
	{Label: "Reoperation", Description: "Same-level vs adjacent-level"},
	{Label: "Pseudarthrosis", Description: "Radiographic or clinical nonunion"},
	{Label: "Fusion Success", Description: "Solid fusion rates"},
	{Label: "Implant/Hardware Failure", Description: "Breakage, loosening"},
	{Label: "Operative Time", Description: "Mean ± SD"},
	{Label: "Blood Loss", Description: "Mean ± SD"},
	{Label: "Length of Stay (LOS)", Description: "Median/mean days"},
	{Label: "Emergency Department Visits", Description: "Within 90 days"},
	{Label: "Medical Complications", Description: "Anemia, AKI, renal failure, pneumonia"},
	{Label: "Glycemic Control", Description: "HbA1c change, peri-op glucose variability"},
	{Label: "Cardiovascular Events", Description: "MI, stroke"},
	{Label: "Neurological Outcomes", Description: "Dysphagia, mobility deficits"},
	{Label: "Nutritional/Muscle Outcomes", Description: "Lean mass loss, sarcopenia"},
	{Label: "Adverse Drug Events", Description: "Pancreatitis, thyroid cancer, GI symptoms"},
	{Label: "Other Notes", Description: "Any unique findings (e.g., SEL regression, neuroprotection)"},
}

// DefaultSchema returns the built-in study schema.
func DefaultSchema() *model.Schema {
	return model.NewSchema(DefaultStudyCharacteristics, DefaultOutcomes)
}

type schemaFile struct {
	StudyCharacteristics []model.SchemaField `yaml:"study_characteristics"`
	Outcomes             []model.SchemaField `yaml:"outcomes"`
}

// LoadSchemaFromFile reads a YAML schema override. An empty path returns the
// built-in schema.
func LoadSchemaFromFile(path string) (*model.Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read schema %s", path)
	}

	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, eris.Wrap(err, "registry: parse schema")
	}

	if len(sf.StudyCharacteristics)+len(sf.Outcomes) == 0 {
		return nil, eris.Errorf("registry: schema %s declares no fields", path)
	}
	for _, f := range append(append([]model.SchemaField{}, sf.StudyCharacteristics...), sf.Outcomes...) {
		if f.Label == "" {
			return nil, eris.Errorf("registry: schema %s has a field without a label", path)
		}
		if f.Label == model.SourceColumn {
			return nil, eris.Errorf("registry: %q is reserved", model.SourceColumn)
		}
	}

	return model.NewSchema(sf.StudyCharacteristics, sf.Outcomes), nil
}
