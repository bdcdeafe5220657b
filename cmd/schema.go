package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/study-extract/internal/model"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the active field schema",
	Long:  "Prints the field schema extraction uses, either the built-in default or the file named by schema.path, in the YAML format schema.path accepts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		schema, err := initSchema()
		if err != nil {
			return err
		}
		return printSchema(cmd.OutOrStdout(), schema)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

type schemaDoc struct {
	StudyCharacteristics []model.SchemaField `yaml:"study_characteristics"`
	Outcomes             []model.SchemaField `yaml:"outcomes"`
}

func printSchema(out io.Writer, s *model.Schema) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(schemaDoc{StudyCharacteristics: s.StudyCharacteristics, Outcomes: s.Outcomes}); err != nil {
		return eris.Wrap(err, "encode schema")
	}
	return enc.Close()
}
