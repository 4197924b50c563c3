package main

import (
	"github.com/spf13/cobra"

	"envscan/internal/fileutil"
)

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := fileutil.MarshalJSON(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
