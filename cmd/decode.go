package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/intent"
	"github.com/vinylscout/vinylscout-api/internal/provider"
	"github.com/vinylscout/vinylscout-api/internal/recommend"
	"github.com/vinylscout/vinylscout-api/internal/shelf"
)

var (
	decodeSchema    string
	decodeTruncated bool
	decodeOutput    string
)

var schemas = map[string]acquire.Schema{
	"intent":    intent.Schema,
	"recommend": recommend.Schema,
	"albums":    shelf.Schema,
}

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Run the decode cascade on a saved model response",
	Long:  "Reads a Gemini or Anthropic response envelope, or bare completion text, from a file or stdin and prints the tier that decoded it and the value.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, ok := schemas[decodeSchema]
		if !ok {
			return eris.Errorf("unknown schema %q (want intent, recommend or albums)", decodeSchema)
		}

		var (
			raw []byte
			err error
		)
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return eris.Wrap(err, "decode: read input")
		}

		p := payloadFor(raw)
		if decodeTruncated {
			p.Truncated = true
		}
		if p.Empty {
			return eris.Errorf("decode: envelope has no completion (finish reason %q)", p.FinishReason)
		}

		d, err := acquire.Decode[map[string]any](p, schema)
		if err != nil {
			return err
		}

		out, err := render(decodeOutput, map[string]any{
			"tier":    d.Tier.String(),
			"records": d.Records,
			"dropped": d.Dropped,
			"value":   d.Value,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
		return err
	},
}

func render(format string, v any) ([]byte, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		return out, eris.Wrap(err, "decode: encode json")
	case "yaml":
		out, err := yaml.Marshal(v)
		return out, eris.Wrap(err, "decode: encode yaml")
	default:
		return nil, eris.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// payloadFor unwraps a known provider envelope, or treats raw as the
// completion text itself.
func payloadFor(raw []byte) acquire.Payload {
	if gjson.ValidBytes(raw) {
		switch {
		case gjson.GetBytes(raw, "candidates").IsArray():
			return acquire.Unwrap(acquire.Envelope{Shape: provider.GeminiShape, Raw: raw})
		case gjson.GetBytes(raw, "content").IsArray() && gjson.GetBytes(raw, "stop_reason").Exists():
			return acquire.Unwrap(acquire.Envelope{Shape: provider.AnthropicShape, Raw: raw})
		}
	}
	return acquire.Payload{Text: string(raw)}
}

func init() {
	decodeCmd.Flags().StringVar(&decodeSchema, "schema", "albums", "expected shape: intent, recommend or albums")
	decodeCmd.Flags().BoolVar(&decodeTruncated, "truncated", false, "treat bare text as cut off by the token limit")
	decodeCmd.Flags().StringVarP(&decodeOutput, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(decodeCmd)
}
