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

// Package errors provides the CLI's structured fatal-error reporting: a
// message for the user, the likely cause, and a suggested next step.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind classifies a CLI error for exit reporting.
type Kind string

const (
	KindConfig   Kind = "config"
	KindInput    Kind = "input"
	KindDatabase Kind = "database"
	KindNetwork  Kind = "network"
	KindInternal Kind = "internal"
)

// CLIError is a user-facing error with remediation context.
type CLIError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Err        error  `json:"-"`
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error { return e.Err }

// NewConfigError reports a configuration problem.
func NewConfigError(message, details, suggestion string, err error) *CLIError {
	return &CLIError{Kind: KindConfig, Message: message, Details: details, Suggestion: suggestion, Err: err}
}

// NewInputError reports invalid command input.
func NewInputError(message, details, suggestion string, err error) *CLIError {
	return &CLIError{Kind: KindInput, Message: message, Details: details, Suggestion: suggestion, Err: err}
}

// NewDatabaseError reports a target-database problem.
func NewDatabaseError(message, details, suggestion string, err error) *CLIError {
	return &CLIError{Kind: KindDatabase, Message: message, Details: details, Suggestion: suggestion, Err: err}
}

// NewNetworkError reports a connectivity problem.
func NewNetworkError(message, details, suggestion string, err error) *CLIError {
	return &CLIError{Kind: KindNetwork, Message: message, Details: details, Suggestion: suggestion, Err: err}
}

// NewInternalError reports a bug or unexpected state.
func NewInternalError(message, details, suggestion string, err error) *CLIError {
	return &CLIError{Kind: KindInternal, Message: message, Details: details, Suggestion: suggestion, Err: err}
}

// FatalError prints err (as JSON when jsonMode) and exits non-zero.
func FatalError(err error, jsonMode bool) {
	if jsonMode {
		payload := err
		if _, ok := err.(*CLIError); !ok {
			payload = &CLIError{Kind: KindInternal, Message: err.Error()}
		}
		_ = json.NewEncoder(os.Stderr).Encode(payload)
		os.Exit(1)
	}

	if cliErr, ok := err.(*CLIError); ok {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cliErr.Message)
		if cliErr.Err != nil {
			fmt.Fprintf(os.Stderr, "  cause: %v\n", cliErr.Err)
		}
		if cliErr.Details != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", cliErr.Details)
		}
		if cliErr.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", cliErr.Suggestion)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
