package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	granite "github.com/graniteware/granite"
	"github.com/graniteware/granite/codec"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "validate":
		validateCmd(os.Args[2:])
	case "inspect":
		inspectCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "granite CLI\n\nUsage:\n  granite validate -schema schema.yaml -input data.json [-out json|yaml]\n  granite inspect -schema schema.yaml\n\nNotes:\n  - Schema and input format is inferred from the file extension (.json, .yaml, .yml).\n  - validate prints the coerced document on success and the issue list on failure.")
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var schemaPath, inputPath, outFormat string
	fs.StringVar(&schemaPath, "schema", "", "schema file (json or yaml)")
	fs.StringVar(&inputPath, "input", "", "input document (json or yaml, - for stdin JSON)")
	fs.StringVar(&outFormat, "out", "json", "output format: json or yaml")
	_ = fs.Parse(args)
	if schemaPath == "" || inputPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	s, err := loadSchema(schemaPath)
	if err != nil {
		fatal(err)
	}

	var input any
	if inputPath == "-" {
		input, err = codec.DecodeJSON(os.Stdin)
	} else {
		input, err = loadDocument(inputPath)
	}
	if err != nil {
		fatal(err)
	}

	out, err := s.Validate(input)
	if err != nil {
		if issues, ok := granite.AsIssues(err); ok {
			for _, it := range issues {
				fmt.Fprintf(os.Stderr, "%s: %s", it.Path, it.Message)
				if it.Key != nil {
					fmt.Fprintf(os.Stderr, " (key %v)", it.Key)
				}
				if it.Value != nil {
					fmt.Fprintf(os.Stderr, " (value %v)", it.Value)
				}
				fmt.Fprintln(os.Stderr)
			}
			os.Exit(1)
		}
		fatal(err)
	}

	switch outFormat {
	case "json":
		err = codec.EncodeJSON(os.Stdout, out)
	case "yaml":
		err = codec.EncodeYAML(os.Stdout, out)
	default:
		fatal(fmt.Errorf("unknown output format %q", outFormat))
	}
	if err != nil {
		fatal(err)
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var schemaPath string
	fs.StringVar(&schemaPath, "schema", "", "schema file (json or yaml)")
	_ = fs.Parse(args)
	if schemaPath == "" {
		fs.Usage()
		os.Exit(2)
	}
	s, err := loadSchema(schemaPath)
	if err != nil {
		fatal(err)
	}
	printNode(s.Node(), "", "<root>")
}

// printNode renders the canonical tree one line per node.
func printNode(n *granite.Node, indent, name string) {
	null := ""
	if n.Nullable {
		null = "?"
	}
	fmt.Printf("%s%s: %s%s", indent, name, n.Type, null)
	if n.Label != "" && n.Label != name {
		fmt.Printf(" (%s)", n.Label)
	}
	fmt.Println()
	for _, f := range n.Fields {
		printNode(f.Node, indent+"  ", f.Name)
	}
	if n.KeyType != nil {
		printNode(n.KeyType, indent+"  ", "+KeyType")
	}
	if n.ValueType != nil {
		printNode(n.ValueType, indent+"  ", "+ValueType")
	}
}

func loadSchema(path string) (*granite.Schema, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	return granite.Compile(doc)
}

func loadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return codec.UnmarshalYAML(data)
	default:
		return codec.UnmarshalJSON(data)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "granite:", err)
	os.Exit(1)
}
