// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the CLI's colorized terminal output helpers.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
	dim    = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// InitColors enables or disables colorized output. Colors are also disabled
// automatically when stdout is not a terminal.
func InitColors(noColor bool) {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Success prints a green check-marked line.
func Success(msg string) { green.Fprintf(os.Stdout, "✓ %s\n", msg) }

// Successf is Success with formatting.
func Successf(format string, args ...any) { Success(fmt.Sprintf(format, args...)) }

// Info prints a plain informational line.
func Info(msg string) { fmt.Fprintln(os.Stdout, msg) }

// Infof is Info with formatting.
func Infof(format string, args ...any) { Info(fmt.Sprintf(format, args...)) }

// Warning prints a yellow warning line to stderr.
func Warning(msg string) { yellow.Fprintf(os.Stderr, "! %s\n", msg) }

// Warningf is Warning with formatting.
func Warningf(format string, args ...any) { Warning(fmt.Sprintf(format, args...)) }

// Error prints a red error line to stderr.
func Error(msg string) { red.Fprintf(os.Stderr, "✗ %s\n", msg) }

// Errorf is Error with formatting.
func Errorf(format string, args ...any) { Error(fmt.Sprintf(format, args...)) }

// Header prints a bold section header.
func Header(msg string) { bold.Fprintf(os.Stdout, "%s\n", msg) }

// SubHeader prints a cyan subsection header.
func SubHeader(msg string) { cyan.Fprintf(os.Stdout, "%s\n", msg) }

// Label formats a "name: value" detail line with a dimmed name.
func Label(name string, value any) {
	dim.Fprintf(os.Stdout, "  %s: ", name)
	fmt.Fprintf(os.Stdout, "%v\n", value)
}

// DimText returns s rendered faint.
func DimText(s string) string { return dim.Sprint(s) }

// CountText returns n rendered bold, for stat lines.
func CountText(n int) string { return bold.Sprintf("%d", n) }

// Cyan returns s rendered cyan.
func Cyan(s string) string { return cyan.Sprint(s) }
