package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) maintenance(on bool, msg string) error {
	if err := cli.settingSvc.SetMaintenance(context.Background(), on, msg); err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Printf("maintenance mode is %s\n", state)
	return nil
}
