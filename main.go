package main

// savefile manager/editor for event-flag-style saves
//
// example usage:
//
// ersave -f ER0000.sl2 dump
// ersave -f ER0000.sl2 validate
// ersave -f ER0000.sl2 get 1 71190
// ersave -f ER0000.sl2 set 1 71190=on
// ersave -f ER0000.sl2 apply 1 --on 71190,9100 --off 20
// ersave -f ER0000.sl2 unlock 1 --category "Sites of Grace"
// ersave -f ER0000.sl2 backups
// ersave -f ER0000.sl2 restore 01J3ZK
// ersave -f ER0000.sl2 watch

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

type config struct {
	backup_dir string
	keep       int
}

// get_config reads defaults from ersave.ini, if there is one.
// Command-line flags win over the ini file.
func get_config() config {
	cfg := config{backup_dir: "backups", keep: 0}

	ini_file, err := ini.Load("ersave.ini")
	if err != nil {
		return cfg
	}

	// Classic read of values, default section can be represented as empty string
	section := ini_file.Section("")
	if dir := section.Key("backup_dir").String(); dir != "" {
		cfg.backup_dir = dir
	}
	if keep, err := section.Key("keep").Int(); err == nil {
		cfg.keep = keep
	}

	return cfg
}

func main() {
	err := new_app(get_config()).Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
