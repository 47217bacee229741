// Command chronicle is a small REPL and single-shot driver over a
// chronicle fact database. It replaces the teacher's declarative
// Datalog query dispatch (parser/planner/executor) with direct
// commands against storage.Handle, since a query language is out of
// scope here.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/abertram/chronicle"
	"github.com/abertram/chronicle/storage"
)

// newTable builds a plain bordered table against w, matching the
// teacher's tablewriter.NewTable(writer, opts...) construction (there
// the renderer was markdown; here the default renderer is used since
// this output is meant for a terminal, not a doc).
func newTable(w *os.File) *tablewriter.Table {
	return tablewriter.NewTable(w)
}

func main() {
	var dbPath string
	var backendName string
	var interactive bool
	var help bool

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "database path (\"\" for an in-memory store)")
	fs.StringVar(&backendName, "backend", "sqlite", "persistent backend: sqlite or badger (ignored when no database path is given)")
	fs.BoolVar(&interactive, "i", false, "interactive mode")
	fs.BoolVar(&help, "h", false, "show help")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [database_path]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A small fact database with a log, three indexes, and no query language.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # scratch in-memory store, demo schema and data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i                       # in-memory store, interactive\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -backend badger -i mydb  # persistent badger store, interactive\n", os.Args[0])
	}
	fs.Parse(os.Args[1:])

	if help {
		fs.Usage()
		os.Exit(0)
	}
	if dbPath == "" && fs.NArg() > 0 {
		dbPath = fs.Arg(0)
	}

	h, err := openHandle(dbPath, backendName)
	if err != nil {
		log.Fatalf("chronicle: %v", err)
	}
	defer h.Close()

	if interactive {
		runInteractive(h)
		return
	}
	runDemo(h)
}

func openHandle(dbPath, backendName string) (*storage.Handle, error) {
	if dbPath == "" {
		return storage.NewInMemory()
	}

	existed := true
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		existed = false
	}

	var backend storage.Backend
	switch strings.ToLower(backendName) {
	case "sqlite", "":
		backend = storage.BackendSQLite
	case "badger":
		backend = storage.BackendBadger
	default:
		return nil, fmt.Errorf("unknown backend %q (want sqlite or badger)", backendName)
	}

	h, err := storage.Open(backend, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s store at %s: %w", backendName, dbPath, err)
	}
	if !existed {
		fmt.Printf("created new %s store at %s\n", backendName, dbPath)
	}
	return h, nil
}

// runDemo declares the person/name and person/age attributes if the
// store lacks them, transacts a handful of facts about a couple of
// entities, and prints the resulting entity views and a raw EAVT dump,
// as a smoke test of a freshly opened handle.
func runDemo(h *storage.Handle) {
	var schema []storage.Operation
	for _, name := range []string{"person/name", "person/age"} {
		if ok, _ := h.HasAttribute(name); !ok {
			op, _ := storage.AssertWithTempId(h.TempId(), storage.IdentAttrName, name)
			schema = append(schema, op)
		}
	}
	if len(schema) > 0 {
		if _, err := h.Transact(schema); err != nil {
			log.Fatalf("chronicle: demo schema: %v", err)
		}
	}

	alice := h.TempId()
	bob := h.TempId()

	facts := []struct {
		tempId chronicle.TempId
		attr   string
		value  interface{}
	}{
		{alice, "person/name", "Alice"},
		{alice, "person/age", int64(34)},
		{bob, "person/name", "Bob"},
		{bob, "person/age", int64(29)},
	}
	ops := make([]storage.Operation, 0, len(facts))
	for _, f := range facts {
		op, err := storage.AssertWithTempId(f.tempId, f.attr, f.value)
		if err != nil {
			log.Fatalf("chronicle: demo op: %v", err)
		}
		ops = append(ops, op)
	}

	res, err := h.Transact(ops)
	if err != nil {
		log.Fatalf("chronicle: demo transact: %v", err)
	}

	aliceId := res.TempIdMappings[alice]
	bobId := res.TempIdMappings[bob]
	color.Green("transacted at tx=%d", res.TxId)

	for _, id := range []chronicle.EntityId{aliceId, bobId} {
		printEntity(h, id)
	}
	printDatoms(h, chronicle.On(chronicle.EAVT))
}

func printEntity(h *storage.Handle, id chronicle.EntityId) {
	snap, err := h.Entity(id)
	if err != nil {
		color.Red("entity %d: %v", id, err)
		return
	}
	fmt.Printf("entity %d:\n", id)
	table := newTable(os.Stdout)
	table.Header([]string{"attribute", "value"})
	for attrId, vs := range snap.Values() {
		name, ok, err := h.AttributeName(attrId)
		if err != nil || !ok {
			name = fmt.Sprintf("attr#%d", attrId)
		}
		for _, v := range vs {
			table.Append([]string{name, formatValue(v)})
		}
	}
	table.Render()
}

func printDatoms(h *storage.Handle, sel chronicle.Selector) {
	ds, err := h.Datoms(sel)
	if err != nil {
		color.Red("datoms: %v", err)
		return
	}
	table := newTable(os.Stdout)
	table.Header([]string{"e", "a", "v", "tx", "status"})
	for _, d := range ds {
		name, ok, nerr := h.AttributeName(d.A)
		if nerr != nil || !ok {
			name = fmt.Sprintf("%d", d.A)
		}
		table.Append([]string{
			fmt.Sprintf("%d", d.E),
			name,
			formatValue(d.V),
			fmt.Sprintf("%d", d.Tx),
			d.Status.String(),
		})
	}
	table.Render()
	fmt.Println(humanize.Comma(int64(len(ds))) + " datom(s)")
}

func formatValue(v chronicle.Value) string {
	if t, ok := chronicle.AsDateTime(v); ok {
		return humanize.Time(t)
	}
	return fmt.Sprintf("%v", v)
}

// runInteractive drives a line-oriented REPL. Commands:
//
//	.assert   <entity> <attr> <value>
//	.retract  <entity> <attr> <value>
//	.tempid   <attr> <value>             (reports the assigned entity id)
//	.entity   <entity>
//	.attr     <name>
//	.datoms   [eavt|aevt|avet]
//	.help
//	.exit
func runInteractive(h *storage.Handle) {
	fmt.Println("chronicle interactive mode. Type .help for commands, .exit to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("chronicle> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := dispatch(h, line); err != nil {
			if err == errExit {
				return
			}
			color.Red("error: %v", err)
		}
	}
}

var errExit = fmt.Errorf("exit")

func dispatch(h *storage.Handle, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ".exit", ".quit":
		return errExit
	case ".help":
		printHelp()
		return nil
	case ".assert":
		return cmdAssertRetract(h, args, false)
	case ".retract":
		return cmdAssertRetract(h, args, true)
	case ".tempid":
		return cmdTempId(h, args)
	case ".entity":
		return cmdEntity(h, args)
	case ".attr":
		return cmdAttr(h, args)
	case ".datoms":
		return cmdDatoms(h, args)
	default:
		return fmt.Errorf("unknown command %q (try .help)", cmd)
	}
}

func printHelp() {
	fmt.Println(`commands:
  .assert  <entity> <attr> <value>   assert a value for an existing entity
  .retract <entity> <attr> <value>   retract a currently live value
  .tempid  <attr> <value>            assert a value on a brand new entity
  .entity  <entity>                  print an entity's current attribute/value mapping
  .attr    <name>                    look up an attribute by db/ident
  .datoms  [eavt|aevt|avet]          dump the live datom set in index order (default eavt)
  .exit                              quit`)
}

func cmdAssertRetract(h *storage.Handle, args []string, retract bool) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: .assert|.retract <entity> <attr> <value>")
	}
	e, err := parseEntityId(args[0])
	if err != nil {
		return err
	}
	value := parseLiteral(args[2])

	var op storage.Operation
	if retract {
		op, err = storage.Retract(e, args[1], value)
	} else {
		op, err = storage.Assert(e, args[1], value)
	}
	if err != nil {
		return err
	}

	res, err := h.Transact([]storage.Operation{op})
	if err != nil {
		return err
	}
	color.Green("ok, tx=%d", res.TxId)
	return nil
}

func cmdTempId(h *storage.Handle, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: .tempid <attr> <value>")
	}
	tmp := h.TempId()
	op, err := storage.AssertWithTempId(tmp, args[0], parseLiteral(args[1]))
	if err != nil {
		return err
	}
	res, err := h.Transact([]storage.Operation{op})
	if err != nil {
		return err
	}
	color.Green("ok, tx=%d, entity=%d", res.TxId, res.TempIdMappings[tmp])
	return nil
}

func cmdEntity(h *storage.Handle, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: .entity <entity>")
	}
	e, err := parseEntityId(args[0])
	if err != nil {
		return err
	}
	printEntity(h, e)
	return nil
}

func cmdAttr(h *storage.Handle, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: .attr <name>")
	}
	id, ok, err := h.Attribute(args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("no attribute named %q\n", args[0])
		return nil
	}
	info, err := h.AttributeInfo(id)
	if err != nil {
		return err
	}
	fmt.Printf("%s -> entity %d, cardinality_many=%v\n", args[0], id, info.CardinalityMany)
	return nil
}

func cmdDatoms(h *storage.Handle, args []string) error {
	kind := chronicle.EAVT
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "eavt":
			kind = chronicle.EAVT
		case "aevt":
			kind = chronicle.AEVT
		case "avet":
			kind = chronicle.AVET
		default:
			return fmt.Errorf("unknown index %q (want eavt, aevt, or avet)", args[0])
		}
	}
	printDatoms(h, chronicle.On(kind))
	return nil
}

func parseEntityId(s string) (chronicle.EntityId, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entity id %q: %w", s, err)
	}
	return chronicle.EntityId(n), nil
}

// parseLiteral guesses a literal's kind from its surface syntax: true
// and false are Bool, a parseable int64 is Int, an RFC3339 timestamp
// is DateTime, anything else is Str. There is no way to type a Ref
// literal from the REPL; assert with an entity id obtained from
// .tempid's output by passing it as a plain integer is unsupported by
// design, since on its own that's indistinguishable from an Int.
func parseLiteral(s string) interface{} {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return s
}
