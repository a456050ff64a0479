// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jeranaias/codeai-tui/internal/curriculum"
)

// TopicsOutput is the JSON form of the topics command.
type TopicsOutput struct {
	Title  string             `json:"title"`
	Topics []curriculum.Topic `json:"topics"`
}

// HandleTopics lists the curriculum.
func HandleTopics(w io.Writer, cur *curriculum.Curriculum, asJSON bool) error {
	if asJSON {
		topics := cur.Topics
		if topics == nil {
			topics = []curriculum.Topic{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(TopicsOutput{Title: cur.Title, Topics: topics})
	}

	fmt.Fprintln(w, TitleStyle.Render(cur.Title+" topics"))
	fmt.Fprintln(w)
	for i, t := range cur.Topics {
		fmt.Fprintf(w, "  %d. %s%s\n", i+1, LabelStyle.Width(12).Render(t.Name), SubtleStyle.Render(t.Summary))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, SubtleStyle.Render("Start one in chat with /learn <topic>."))
	return nil
}
