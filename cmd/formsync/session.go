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

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/formsync/formsync/api/types"
)

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session [session id]",
		Short: "Show a session with its collaborators and field locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("session id is required")
			}

			var snapshot types.Snapshot
			if err := getJSON(context.Background(), "/sessions/"+args[0]+"/snapshot", &snapshot); err != nil {
				return err
			}

			session := snapshot.Session
			cmd.Printf("Session: %s\n", session.ID)
			cmd.Printf("Document: %s (%s)\n", session.DocumentID, session.DocumentType)
			cmd.Printf("Status: %s, version %d\n\n", session.Status, session.Version)

			locks := make(map[types.ID][]string)
			for _, lock := range snapshot.Locks {
				locks[lock.HolderID] = append(locks[lock.HolderID], lock.FieldName)
			}

			tw := table.NewWriter()
			tw.Style().Options.DrawBorder = false
			tw.Style().Options.SeparateColumns = false
			tw.Style().Options.SeparateFooter = false
			tw.Style().Options.SeparateHeader = false
			tw.Style().Options.SeparateRows = false
			tw.AppendHeader(table.Row{
				"ID",
				"NAME",
				"ROLE",
				"STATUS",
				"COLOR",
				"LOCKS",
			})
			for _, c := range snapshot.Collaborators {
				tw.AppendRow(table.Row{
					c.ID,
					c.Name,
					c.Role,
					c.Status,
					c.Color,
					len(locks[c.ID]),
				})
			}
			cmd.Printf("%s\n", tw.Render())
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newSessionCmd())
}
