package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/kectap/internal/model"
	"github.com/rendis/kectap/internal/tui/styles"
)

func runColumns(args []string) error {
	var plain bool

	fs := flag.NewFlagSet("columns", flag.ExitOnError)
	fs.BoolVar(&plain, "plain", false, "Print machine names only, one per line")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if plain {
		for _, c := range model.Catalog {
			fmt.Println(c.Value)
		}
		return nil
	}

	group := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	for _, g := range model.GroupedColumns() {
		fmt.Println(group.Render(g.Name))
		for _, c := range g.Columns {
			line := fmt.Sprintf("  %s %-20s %s", styles.Check(c.Default), c.Value, c.Label)
			if c.Hint != "" {
				line += "  " + styles.Hint.Render("("+c.Hint+")")
			}
			fmt.Println(line)
		}
	}

	names := make([]string, 0, len(model.Presets))
	for name := range model.Presets {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Println(group.Render("Presets"))
	for _, name := range names {
		cols := model.Presets[name]()
		fmt.Printf("  %-13s %2d  %s\n", name, len(cols), strings.Join(cols, ","))
	}
	fmt.Println()
	fmt.Println(styles.Hint.Render("[x] marks the minimal preset"))
	return nil
}
