// SPDX-License-Identifier: MPL-2.0

package container

import (
	"fmt"
	"strings"
)

// fallbackBaseImage is used when a Dockerfile carries no FROM line at all.
const fallbackBaseImage = "ubuntu:20.04"

// DockerfileToDefinition converts Dockerfile content into an
// Apptainer/Singularity definition file. The first FROM line becomes the
// bootstrap source; RUN instructions are carried into %post verbatim with
// the keyword stripped; instructions with no definition-file equivalent
// (COPY, further FROM stages) are kept as comments so the provenance stays
// readable.
func DockerfileToDefinition(dockerfile string) string {
	base := fallbackBaseImage
	var post []string

	for line := range strings.SplitSeq(dockerfile, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue
		case hasInstruction(trimmed, "FROM"):
			ref := instructionArg(trimmed, "FROM")
			// Multi-stage aliases ("AS builder") are not part of the ref.
			if i := strings.Index(strings.ToUpper(ref), " AS "); i >= 0 {
				ref = ref[:i]
			}
			if base == fallbackBaseImage {
				base = strings.TrimSpace(ref)
			} else {
				post = append(post, "# FROM "+strings.TrimSpace(ref))
			}
		case hasInstruction(trimmed, "RUN"):
			post = append(post, instructionArg(trimmed, "RUN"))
		case hasInstruction(trimmed, "COPY"), hasInstruction(trimmed, "ADD"):
			post = append(post, "# "+trimmed)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Bootstrap: docker\nFrom: %s\n\n%%post\n", base)
	for _, cmd := range post {
		fmt.Fprintf(&b, "    %s\n", cmd)
	}
	return b.String()
}

func hasInstruction(line, keyword string) bool {
	if len(line) <= len(keyword) {
		return false
	}
	return strings.EqualFold(line[:len(keyword)], keyword) && line[len(keyword)] == ' '
}

func instructionArg(line, keyword string) string {
	return strings.TrimSpace(line[len(keyword):])
}
