package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
)

var (
	okLabel   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
)

func printYAML(w io.Writer, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = w.Write(b)
	return err
}

func printStatus(w io.Writer, ok bool, what, detail string) {
	label := okLabel("ok")
	if !ok {
		label = failLabel("rejected")
	}
	if detail == "" {
		fmt.Fprintf(w, "%s %s\n", label, what)
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", label, what, dim(detail))
}
