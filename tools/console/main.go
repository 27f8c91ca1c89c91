package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"reflect"
	"strings"

	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/pkg/stormcodec"
	"github.com/42-Bangkok/gateway/pkg/stormsql"
	"github.com/42-Bangkok/gateway/pkg/structs"
	"github.com/asdine/storm/v3"
	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
)

// go run tools/console/main.go gateway.db "SELECT count(*) FROM sessions WHERE user_id = 'f2a98ab0-2c40-42b4-be08-da3b771be935' AND updated_at > '2024-02-16 20:52:55'"
// go run tools/console/main.go gateway.db # interactive

var tables = map[string]any{
	"users":              model.User{},
	"profiles":           model.Profile{},
	"sessions":           model.Session{},
	"cadet_metas":        model.CadetMeta{},
	"intra_profiles":     model.IntraProfile{},
	"intra_profile_data": model.IntraProfileData{},
	"webhooks":           model.Webhook{},
}

func main() {
	var codec string
	var dump bool

	c := &cobra.Command{
		Use:   "console DATABASE [QUERY]",
		Short: "SQL console for the gateway storm database",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			mu, err := stormcodec.ByName(codec)
			if err != nil {
				return err
			}

			fmt.Println("Opening", args[0])
			db, err := storm.Open(args[0], storm.Codec(mu))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			output := jsondump
			if dump {
				output = litterdump
			}

			if len(args) == 2 {
				return execute(db, args[1], output)
			}
			return repl(db, output)
		},
	}
	c.Flags().StringVarP(&codec, "codec", "", "", "Storm codec of the database (msgpack, json, cbor or binc)")
	c.Flags().BoolVarP(&dump, "dump", "d", false, "Dump records as Go values instead of JSON")

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func repl(db *storm.DB, output func(any)) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gateway> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return errors.Wrap(err, "could not start console")
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit", `\q`:
			return nil
		case "tables", `\d`:
			for name := range tables {
				fmt.Println(name)
			}
			continue
		}

		if err = execute(db, line, output); err != nil {
			fmt.Println("Error:", err)
		}
	}
}

func execute(db *storm.DB, sql string, output func(any)) error {
	sc, err := stormsql.ParseSelect(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	if err != nil {
		return err
	}

	table, ok := tables[sc.Tablename]
	if !ok {
		return errors.Errorf("unknown tablename: %s", sc.Tablename)
	}
	for _, field := range sc.SelectedFields {
		if !structs.HasField(table, field) {
			return errors.Errorf("unknown column %s for table %s", field, sc.Tablename)
		}
	}

	//
	// Prepare request
	//

	query := db.Select(sc.Matcher)
	if sc.Skip > 0 {
		query.Skip(sc.Skip)
	}
	if sc.Limit > 0 {
		query.Limit(sc.Limit)
	}
	if len(sc.OrderBy) > 0 {
		query.OrderBy(sc.OrderBy...)
		if sc.OrderByReversed {
			query.Reverse()
		}
	}

	// Execute

	if sc.Count {
		return count(query, table)
	}
	return list(sc, query, table, output)
}

func count(query storm.Query, table any) error {
	record := reflect.New(reflect.TypeOf(table)).Interface()

	n, err := query.Count(record)
	if err != nil {
		return errors.Wrap(err, "could not perform query")
	}

	fmt.Println("Count:", n)
	return nil
}

func list(sc *stormsql.SelectClause, query storm.Query, table any, output func(any)) error {
	records := reflect.New(reflect.SliceOf(reflect.PtrTo(reflect.TypeOf(table))))

	err := query.Find(records.Interface())
	if err == storm.ErrNotFound {
		fmt.Println("[]")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "could not perform query")
	}

	if len(sc.SelectedFields) == 0 {
		output(records.Interface())
		return nil
	}

	rows := make([]map[string]any, 0, records.Elem().Len())
	for i := 0; i < records.Elem().Len(); i++ {
		row, err := structs.Pick(records.Elem().Index(i).Interface(), sc.SelectedFields...)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	output(rows)
	return nil
}

func jsondump(v any) {
	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(d))
}

func litterdump(v any) {
	litter.Dump(v)
}
