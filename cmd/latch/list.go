package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listFlags struct {
	config string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured hooks",
	Long: `List shows every hook the pipeline document configures, in the
order they run, with the stages that trigger them and where they come
from. Fields a remote repository's manifest fills in (like language)
show as "-" here; explain resolves them.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFlags.config, "config", "c", "", "Pipeline document to read instead of the discovered one")
}

func runList(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(listFlags.config)
	if err != nil {
		return err
	}

	type row struct{ id, stages, language, source string }
	rows := make([]row, 0, len(ws.config.AllHooks()))
	for _, ch := range ws.config.AllHooks() {
		r := row{
			id:       ch.Hook.ID,
			stages:   strings.Join(ws.config.EffectiveStages(*ch.Hook), ","),
			language: orDash(ch.Hook.Language),
			source:   sourceFor(ch.Repo.Repo, ch.Repo.Rev),
		}
		rows = append(rows, r)
	}

	idW, stW, laW := len("HOOK"), len("STAGES"), len("LANGUAGE")
	for _, r := range rows {
		idW = max(idW, len(r.id))
		stW = max(stW, len(r.stages))
		laW = max(laW, len(r.language))
	}

	fmt.Printf("%-*s  %-*s  %-*s  %s\n", idW, "HOOK", stW, "STAGES", laW, "LANGUAGE", "SOURCE")
	for _, r := range rows {
		fmt.Printf("%-*s  %-*s  %-*s  %s\n", idW, r.id, stW, r.stages, laW, r.language, r.source)
	}
	return nil
}

func sourceFor(repo, rev string) string {
	if rev == "" {
		return repo
	}
	return repo + " @ " + rev
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
