// SPDX-License-Identifier: MPL-2.0

package container

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// SplitSimpleCommand reports whether command is a plain invocation with no
// shell metacharacters and, if so, returns its argv fields. Commands like
// "sleep infinity" are then passed to the runtime literally, skipping an
// unnecessary sh -c layer; anything involving pipes, redirects, logical
// operators, expansions, or quoting falls back to the shell.
func SplitSimpleCommand(command string) ([]string, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, false
	}

	parser := syntax.NewParser()
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, false
	}
	if len(file.Stmts) != 1 {
		return nil, false
	}

	stmt := file.Stmts[0]
	if stmt.Negated || stmt.Background || stmt.Coprocess || len(stmt.Redirs) > 0 {
		return nil, false
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 || len(call.Args) == 0 {
		return nil, false
	}

	fields := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		if len(word.Parts) != 1 {
			return nil, false
		}
		lit, ok := word.Parts[0].(*syntax.Lit)
		if !ok {
			return nil, false
		}
		fields = append(fields, lit.Value)
	}
	return fields, true
}
