/*
 * Copyright 2026 The Formsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/formsync/formsync/api/types"
)

var (
	fromSeq int64
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [session id]",
		Short: "Show the change ledger of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("session id is required")
			}

			var changes []*types.Change
			path := fmt.Sprintf("/sessions/%s/changes?from=%d", args[0], fromSeq)
			if err := getJSON(context.Background(), path, &changes); err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.Style().Options.DrawBorder = false
			tw.Style().Options.SeparateColumns = false
			tw.Style().Options.SeparateFooter = false
			tw.Style().Options.SeparateHeader = false
			tw.Style().Options.SeparateRows = false
			tw.AppendHeader(table.Row{
				"SEQ",
				"KIND",
				"FIELD",
				"OLD",
				"NEW",
				"AUTHOR",
				"CREATED AT",
			})
			for _, change := range changes {
				tw.AppendRow(table.Row{
					change.Seq,
					change.Kind,
					change.FieldName,
					change.OldValue,
					change.NewValue,
					change.AuthorID,
					change.CreatedAt.Format("2006-01-02 15:04:05.000"),
				})
			}
			cmd.Printf("%s\n", tw.Render())
			return nil
		},
	}
}

func init() {
	cmd := newHistoryCmd()
	cmd.Flags().Int64Var(
		&fromSeq,
		"from",
		0,
		"The sequence to start from",
	)
	rootCmd.AddCommand(cmd)
}
