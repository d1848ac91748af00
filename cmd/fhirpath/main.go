package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/analyzer"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/model"
)

var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	rootCmd := newRootCmd()
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhirpath",
		Short: "fhirpath - a FHIRPath engine for Go",
		Long: `fhirpath evaluates, parses, and statically analyzes FHIRPath expressions
against FHIR resources.

For more on the language itself, see https://hl7.org/fhirpath`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newAnalyzeCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fhirpath version %s\n", version)
		},
	}
}

func newEvalCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "eval [expression] [file]",
		Short: "Evaluate a FHIRPath expression against a resource",
		Long: `Evaluate a FHIRPath expression against a FHIR resource.

Examples:
  fhirpath eval "Patient.name.given" patient.json
  fhirpath eval "Observation.value.ofType(Quantity).value" observation.json
  fhirpath eval "Bundle.entry.resource.ofType(Patient)" bundle.json --output json`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			expression := args[0]
			filePath := args[1]

			resourceData, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", filePath, err)
			}

			compiled, err := fhirpath.Compile(expression)
			if err != nil {
				return fmt.Errorf("invalid FHIRPath expression: %w", err)
			}

			result, err := compiled.Evaluate(resourceData)
			if err != nil {
				return fmt.Errorf("evaluation error: %w", err)
			}

			switch outputFormat {
			case "json":
				return outputJSON(result)
			default:
				return outputText(result)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")

	return cmd
}

func newParseCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "parse [expression]",
		Short: "Parse a FHIRPath expression and print its AST",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			tree, diags := fhirpath.Parse(args[0])
			if len(diags) > 0 {
				for _, d := range diags {
					fmt.Fprintf(os.Stderr, "%d:%d %s\n", d.Range.Start.Line, d.Range.Start.Column, d.Message)
				}
			}

			switch outputFormat {
			case "json":
				return outputTreeJSON(tree)
			default:
				printNode(tree, tree.Root, 0)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")

	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var inputType string

	cmd := &cobra.Command{
		Use:   "analyze [expression]",
		Short: "Statically type-check a FHIRPath expression",
		Long: `Run the FHIRPath analyzer over an expression, reporting diagnostics
for unknown variables, unknown functions, unresolved properties, argument
count mismatches, and type errors without evaluating against any resource.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			provider := model.NewStaticModelProvider()

			opts := []analyzer.Option{analyzer.WithModelProvider(provider)}
			if inputType != "" {
				opts = append(opts, analyzer.WithInputType(ast.TypeInfo{
					Namespace:  "FHIR",
					Name:       inputType,
					Collection: true,
				}))
			}

			result, parseDiags := fhirpath.Analyze(args[0], opts...)
			for _, d := range parseDiags {
				fmt.Printf("%d:%d syntax: %s\n", d.Range.Start.Line, d.Range.Start.Column, d.Message)
			}
			if len(result.Diagnostics) == 0 && len(parseDiags) == 0 {
				fmt.Println("no diagnostics")
				return nil
			}
			for _, d := range result.Diagnostics {
				fmt.Printf("%d:%d [%s] %s: %s\n", d.Range.Start.Line, d.Range.Start.Column, severityLabel(d.Severity), d.Code, d.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputType, "input-type", "", "FHIR resource type the expression evaluates against (e.g. Patient)")

	return cmd
}

func severityLabel(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityError:
		return "error"
	case analyzer.SeverityWarning:
		return "warning"
	case analyzer.SeverityInfo:
		return "info"
	case analyzer.SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

func printNode(tree *ast.Tree, idx int, depth int) {
	if idx == 0 {
		return
	}
	n := tree.Node(idx)
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	label := n.Text
	if label == "" {
		label = n.Op.String()
	}
	fmt.Printf("%s%s %q\n", indent, kindLabel(n.Kind), label)
	for _, c := range n.Children {
		printNode(tree, c, depth+1)
	}
}

func kindLabel(k ast.Kind) string {
	switch k {
	case ast.KindLiteral:
		return "Literal"
	case ast.KindThis:
		return "This"
	case ast.KindIndexVar:
		return "Index"
	case ast.KindTotalVar:
		return "Total"
	case ast.KindVariable:
		return "Variable"
	case ast.KindIdentifier:
		return "Identifier"
	case ast.KindUnary:
		return "Unary"
	case ast.KindBinary:
		return "Binary"
	case ast.KindInvocation:
		return "Invocation"
	case ast.KindIndexer:
		return "Indexer"
	case ast.KindFunction:
		return "Function"
	case ast.KindTypeExpr:
		return "TypeExpr"
	case ast.KindParen:
		return "Paren"
	case ast.KindError:
		return "Error"
	default:
		return "Invalid"
	}
}

type treeNodeJSON struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text,omitempty"`
	Children []treeNodeJSON `json:"children,omitempty"`
}

func outputTreeJSON(tree *ast.Tree) error {
	root := buildNodeJSON(tree, tree.Root)
	b, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tree: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

func buildNodeJSON(tree *ast.Tree, idx int) treeNodeJSON {
	if idx == 0 {
		return treeNodeJSON{}
	}
	n := tree.Node(idx)
	out := treeNodeJSON{Kind: kindLabel(n.Kind), Text: n.Text}
	for _, c := range n.Children {
		out.Children = append(out.Children, buildNodeJSON(tree, c))
	}
	return out
}

func outputText(result fhirpath.Collection) error {
	if result.Empty() {
		fmt.Println("(empty)")
		return nil
	}

	for i, value := range result {
		if len(result) > 1 {
			fmt.Printf("[%d] ", i)
		}
		fmt.Println(value.String())
	}
	return nil
}

func outputJSON(result fhirpath.Collection) error {
	if result.Empty() {
		fmt.Println("[]")
		return nil
	}

	output := make([]interface{}, len(result))
	for i, value := range result {
		output[i] = valueToInterface(value)
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	fmt.Println(string(jsonBytes))
	return nil
}

func valueToInterface(v fhirpath.Value) interface{} {
	switch val := v.(type) {
	case interface{ Bool() bool }:
		return val.Bool()
	case interface{ Value() int64 }:
		return val.Value()
	case interface{ Value() string }:
		return val.Value()
	default:
		return v.String()
	}
}
