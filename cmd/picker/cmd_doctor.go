package main

import (
	"fmt"

	"StockPicker/internal/doctor"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "诊断数据源连通性",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ds, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rep := doctor.Run(cmd.Context(), ds)
	if flagOutput == "json" {
		if err := printJSON(rep); err != nil {
			return err
		}
	} else {
		fmt.Print(doctor.Format(rep))
	}
	if !rep.AllOK {
		return fmt.Errorf("诊断未通过，请检查网络或代理设置")
	}
	return nil
}
