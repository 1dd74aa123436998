package main

import (
	"os"

	"github.com/muesli/termenv"
)

var (
	// termenv output for consistent terminal styling
	output = termenv.NewOutput(os.Stdout)

	// Style helpers - initialized in initColors()
	errorStyle     termenv.Style
	dimStyle       termenv.Style
	userStyle      termenv.Style
	assistantStyle termenv.Style
)

// initColors initializes color styles based on terminal background
func initColors() {
	if termenv.HasDarkBackground() {
		errorStyle = output.String().Foreground(output.Color("124"))
		dimStyle = output.String().Faint()
		userStyle = output.String().Foreground(output.Color("32")).Bold()
		assistantStyle = output.String().Foreground(output.Color("141"))
	} else {
		errorStyle = output.String().Foreground(output.Color("160"))
		dimStyle = output.String().Foreground(output.Color("240"))
		userStyle = output.String().Foreground(output.Color("26")).Bold()
		assistantStyle = output.String().Foreground(output.Color("90"))
	}
}

func styled(style termenv.Style, s string) string {
	return style.Styled(s)
}
