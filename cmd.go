package main

import (
	"errors"
	"fmt"
	"math/bits"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"ersave/backup"
	"ersave/eventflags"
	"ersave/savefile"
	"ersave/tables"
	"ersave/types"
	"ersave/watcher"
)

func new_app(cfg config) *cli.App {
	return &cli.App{
		Name:  "ersave",
		Usage: "Save file manager: event flags, checksums, backups",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Path to the save file"},
			&cli.StringFlag{Name: "backups", Value: cfg.backup_dir, Usage: "Backup store directory"},
			&cli.IntFlag{Name: "keep", Value: cfg.keep, Usage: "Backups to keep per save file (0 = all)"},
		},
		Commands: []*cli.Command{
			dump_cmd(),
			validate_cmd(),
			get_cmd(),
			set_cmd(),
			apply_cmd(),
			unlock_cmd(),
			flags_cmd(),
			backups_cmd(),
			restore_cmd(),
			watch_cmd(),
		},
	}
}

func need_file(c *cli.Context) (string, error) {
	path := c.String("file")
	if path == "" {
		return "", errors.New("no save file given (use -f)")
	}
	return path, nil
}

func manager(c *cli.Context) *backup.Manager {
	return backup.New_manager(c.String("backups"), c.Int("keep"))
}

// parse_slot converts a 1-based slot argument (the way the game numbers
// them) to a 0-based index.  Bounds are the container's problem.
func parse_slot(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("bad slot %q", arg)
	}
	return n - 1, nil
}

// edit_file is the one mutation path: snapshot the on-disk file, apply the
// edit to the in-memory buffer, recompute every digest, write atomically.
// A failed backup aborts before anything is touched - there is no
// write-without-backup route through here.
func edit_file(mgr *backup.Manager, path string, description string, operation string, fn func(*savefile.Savefile) error) error {
	_, err := mgr.Create_backup(path, description, operation)
	if err != nil {
		return err
	}

	sf, err := savefile.Load_file(path)
	if err != nil {
		return err
	}

	err = fn(sf)
	if err != nil {
		return err
	}

	sf.Recalculate_checksums()
	return sf.Save_to(path)
}

var onoff = map[bool]string{true: "ON", false: "off"}

func dump_cmd() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "List slot and checksum status",
		Action: func(c *cli.Context) error {
			path, err := need_file(c)
			if err != nil {
				return err
			}
			sf, err := savefile.Load_file(path)
			if err != nil {
				return err
			}

			checks := sf.Validate()
			status := map[bool]string{true: "ok", false: "MISMATCH"}
			for i := 0; i < types.SLOT_COUNT; i += 1 {
				slot, _ := sf.Slot(i)
				if slot.Is_empty() {
					fmt.Printf("Slot %2v: (empty), checksum %v\n", i+1, status[checks[i].Match])
					continue
				}
				blob, err := slot.Event_flags()
				if err != nil {
					return err
				}
				set := 0
				for _, b := range blob {
					set += bits.OnesCount8(b)
				}
				fmt.Printf("Slot %2v: %v flag bytes, %v flags set, checksum %v\n", i+1, len(blob), set, status[checks[i].Match])
			}
			fmt.Printf("File checksum: %v\n", status[checks[len(checks)-1].Match])
			return nil
		},
	}
}

func validate_cmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check all checksums without changing anything",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "repair", Usage: "Rewrite every digest (takes a backup first)"},
		},
		Action: func(c *cli.Context) error {
			path, err := need_file(c)
			if err != nil {
				return err
			}

			if c.Bool("repair") {
				// edit_file recalculates unconditionally, so the edit
				// itself is a no-op
				err := edit_file(manager(c), path, "before checksum repair", "repair", func(sf *savefile.Savefile) error { return nil })
				if err != nil {
					return err
				}
				fmt.Println("All digests rewritten")
				return nil
			}

			sf, err := savefile.Load_file(path)
			if err != nil {
				return err
			}
			checks := sf.Validate()
			if checks.Ok() {
				fmt.Println("All checksums match")
				return nil
			}
			// A mismatch is a warning, not a failure: the file loaded fine
			for _, chk := range checks.Mismatches() {
				fmt.Printf("%v: stored %x, computed %x\n", chk.Name, chk.Stored, chk.Computed)
			}
			fmt.Println("Run \"validate --repair\" to rewrite the digests")
			return nil
		},
	}
}

func get_cmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read event flags",
		ArgsUsage: "slot flag...",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return errors.New("expected a slot and at least one flag ID")
			}
			path, err := need_file(c)
			if err != nil {
				return err
			}
			sf, err := savefile.Load_file(path)
			if err != nil {
				return err
			}
			index, err := parse_slot(c.Args().First())
			if err != nil {
				return err
			}
			slot, err := sf.Slot(index)
			if err != nil {
				return err
			}

			for _, arg := range c.Args().Tail() {
				id, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("bad flag ID %q", arg)
				}
				on, err := slot.Get_flag(id)
				if err != nil {
					// One bad ID shouldn't block the rest
					fmt.Printf("%v: %v\n", id, err)
					continue
				}
				fmt.Printf("%v: [%v] %v\n", id, onoff[on], tables.Flag_name(id))
			}
			return nil
		},
	}
}

// run_edits is the shared back half of set/apply/unlock: one backup, one
// single-pass batch, one checksum pass, one write.
func run_edits(c *cli.Context, slot_arg string, edits []eventflags.Edit, operation string) error {
	path, err := need_file(c)
	if err != nil {
		return err
	}
	index, err := parse_slot(slot_arg)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("before %v of %v flags in slot %v", operation, len(edits), index+1)
	return edit_file(manager(c), path, description, operation, func(sf *savefile.Savefile) error {
		slot, err := sf.Slot(index)
		if err != nil {
			return err
		}
		applied, failures := slot.Apply_flags(edits)
		for _, f := range failures {
			fmt.Println(f)
		}
		if applied == 0 {
			return fmt.Errorf("no flags applied (%v failures), file untouched", len(failures))
		}
		fmt.Printf("Applied %v/%v flag edits to slot %v\n", applied, len(edits), index+1)
		return nil
	})
}

func parse_edit(arg string) (eventflags.Edit, error) {
	edit := eventflags.Edit{On: true}

	id_str, value, found := strings.Cut(arg, "=")
	if found {
		switch strings.ToLower(value) {
		case "on", "1", "true":
			edit.On = true
		case "off", "0", "false":
			edit.On = false
		default:
			return edit, fmt.Errorf("bad flag value %q (want on or off)", value)
		}
	}

	id, err := strconv.Atoi(id_str)
	if err != nil {
		return edit, fmt.Errorf("bad flag ID %q", id_str)
	}
	edit.Flag = id
	return edit, nil
}

func parse_id_list(list string) ([]int, error) {
	out := []int{}
	for _, field := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("bad flag ID %q", field)
		}
		out = append(out, id)
	}
	return out, nil
}

func set_cmd() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set or clear event flags",
		ArgsUsage: "slot flag[=on|off]...",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return errors.New("expected a slot and at least one flag edit (e.g. \"set 1 71190=on\")")
			}
			edits := []eventflags.Edit{}
			for _, arg := range c.Args().Tail() {
				edit, err := parse_edit(arg)
				if err != nil {
					return err
				}
				edits = append(edits, edit)
			}
			return run_edits(c, c.Args().First(), edits, "set")
		},
	}
}

func apply_cmd() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply a batch of flag changes",
		ArgsUsage: "slot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "on", Usage: "Comma-separated flag IDs to set"},
			&cli.StringFlag{Name: "off", Usage: "Comma-separated flag IDs to clear"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one slot argument")
			}
			edits := []eventflags.Edit{}
			for _, group := range []struct {
				flag string
				on   bool
			}{{"on", true}, {"off", false}} {
				ids, err := parse_id_list(c.String(group.flag))
				if err != nil {
					return err
				}
				for _, id := range ids {
					edits = append(edits, eventflags.Edit{Flag: id, On: group.on})
				}
			}
			if len(edits) == 0 {
				return errors.New("nothing to do (use --on and/or --off)")
			}
			return run_edits(c, c.Args().First(), edits, "apply")
		},
	}
}

func unlock_cmd() *cli.Command {
	return &cli.Command{
		Name:      "unlock",
		Usage:     "Set every documented flag in a category",
		ArgsUsage: "slot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Required: true, Usage: "Catalog category (see \"flags\")"},
			&cli.StringFlag{Name: "subcategory", Usage: "Restrict to one subcategory"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one slot argument")
			}
			ids := tables.Category_flags(c.String("category"), c.String("subcategory"))
			if len(ids) == 0 {
				return fmt.Errorf("no documented flags in %q - categories are: %v", c.String("category"), strings.Join(tables.Categories(), ", "))
			}
			edits := []eventflags.Edit{}
			for _, id := range ids {
				edits = append(edits, eventflags.Edit{Flag: id, On: true})
			}
			return run_edits(c, c.Args().First(), edits, "unlock")
		},
	}
}

func flags_cmd() *cli.Command {
	return &cli.Command{
		Name:  "flags",
		Usage: "Browse the documented flag catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "List one category"},
			&cli.StringFlag{Name: "subcategory", Usage: "Restrict to one subcategory"},
			&cli.StringFlag{Name: "search", Usage: "Search by name or ID"},
			&cli.IntFlag{Name: "slot", Usage: "Also show each flag's state in this slot (needs -f)"},
		},
		Action: func(c *cli.Context) error {
			ids := []int{}
			switch {
			case c.String("search") != "":
				ids = tables.Search(c.String("search"))
			case c.String("category") != "":
				ids = tables.Category_flags(c.String("category"), c.String("subcategory"))
			default:
				// No filter: show the category summary instead of
				// dumping a thousand lines
				for _, cat := range tables.Categories() {
					fmt.Printf("%-16v %4v flags\n", cat, len(tables.Category_flags(cat, "")))
				}
				return nil
			}

			if len(ids) == 0 {
				fmt.Println("No matching flags")
				return nil
			}

			var slot *savefile.Slot
			if c.Int("slot") > 0 {
				path, err := need_file(c)
				if err != nil {
					return err
				}
				sf, err := savefile.Load_file(path)
				if err != nil {
					return err
				}
				slot, err = sf.Slot(c.Int("slot") - 1)
				if err != nil {
					return err
				}
			}

			for _, id := range ids {
				if slot == nil {
					fmt.Printf("%6v: %v\n", id, tables.Flag_name(id))
					continue
				}
				state := "?"
				if on, err := slot.Get_flag(id); err == nil {
					state = onoff[on]
				}
				fmt.Printf("%6v: [%-3v] %v\n", id, state, tables.Flag_name(id))
			}
			return nil
		},
	}
}

func backups_cmd() *cli.Command {
	return &cli.Command{
		Name:  "backups",
		Usage: "List backups of the save file, most recent first",
		Action: func(c *cli.Context) error {
			path, err := need_file(c)
			if err != nil {
				return err
			}
			all, err := manager(c).List_backups(path)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Println("No backups for", path)
				return nil
			}
			for _, b := range all {
				fmt.Printf("%v  %v  %-10v %v\n", b.Id, b.Timestamp.Format(time.DateTime), b.Operation, b.Description)
			}
			return nil
		},
	}
}

func restore_cmd() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a backup over the save file",
		ArgsUsage: "backup-id",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one backup ID (see \"backups\"; a unique prefix is enough)")
			}
			path, err := need_file(c)
			if err != nil {
				return err
			}
			mgr := manager(c)

			b, err := mgr.Find(path, c.Args().First())
			if err != nil {
				return err
			}
			raw, err := mgr.Restore(b)
			if err != nil {
				return err
			}

			// The restored bytes go back through the container's own write
			// path, and overwriting the current file is a mutation like any
			// other, so it gets its own backup first.
			sf, err := savefile.Load(raw)
			if err != nil {
				return err
			}
			_, err = mgr.Create_backup(path, "before restore of "+b.Id, "restore")
			if err != nil {
				return err
			}
			err = sf.Save_to(path)
			if err != nil {
				return err
			}

			fmt.Printf("Restored %v (%v, %v)\n", b.Id, b.Timestamp.Format(time.DateTime), b.Description)
			return nil
		},
	}
}

func watch_cmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Revalidate checksums whenever the save file is rewritten",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "settle", Value: 5 * time.Second, Usage: "How long to wait for the writer to finish"},
		},
		Action: func(c *cli.Context) error {
			path, err := need_file(c)
			if err != nil {
				return err
			}

			w := watcher.New_watcher(path, c.Duration("settle"))
			reports := make(chan *watcher.Report)
			err = w.Start_watching(reports)
			if err != nil {
				return err
			}
			defer w.Stop_watching()

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)

			fmt.Println("Watching", path, "- ctrl-C to stop")
			for {
				select {
				case r := <-reports:
					if r.Err != nil {
						fmt.Printf("%v: %v\n", r.Path, r.Err)
						continue
					}
					if r.Checks.Ok() {
						fmt.Printf("%v: all checksums match\n", r.Path)
						continue
					}
					for _, chk := range r.Checks.Mismatches() {
						fmt.Printf("%v: %v checksum MISMATCH\n", r.Path, chk.Name)
					}
				case <-interrupt:
					return nil
				}
			}
		},
	}
}
