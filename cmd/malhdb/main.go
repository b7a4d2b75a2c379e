package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"malhdb/pkg/config"
	"malhdb/pkg/database"
	"malhdb/pkg/repl"

	"github.com/google/uuid"
)

// Default port 6254 (MALH).
const DEFAULT_PORT int = 6254

const usage = `usage: malhdb [flags] [command]

commands:
  create NAME NATTRS NPAGES DEPTH CHOICEVEC
  insert NAME                 (tuples on stdin, one per line)
  select NAME PATTERN
  stats NAME
  drop NAME

With no command, runs the interactive REPL (or a TCP server with -server).
`

// Listens for SIGINT or SIGTERM and closes the database.
func setupCloseHandler(db *database.Database) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		db.Close()
		os.Exit(0)
	}()
}

// startServer listens for connections and runs the REPL on each.
func startServer(r *repl.REPL, prompt string, port int) {
	handleConn := func(c net.Conn) {
		defer c.Close()
		r.Run(uuid.New(), prompt, c, c)
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%v server started listening on localhost:%v\n", config.DBName,
		listener.Addr().(*net.TCPAddr).Port)
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Print(err)
			continue
		}
		go handleConn(conn)
	}
}

// runCommand executes one non-interactive command against the database.
func runCommand(db *database.Database, args []string) error {
	client := uuid.New()
	switch args[0] {
	case "create":
		if len(args) != 6 {
			return fmt.Errorf("usage: create NAME NATTRS NPAGES DEPTH CHOICEVEC")
		}
		nattrs, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("bad NATTRS: %v", err)
		}
		npages, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			return fmt.Errorf("bad NPAGES: %v", err)
		}
		depth, err := strconv.ParseUint(args[4], 10, 32)
		if err != nil {
			return fmt.Errorf("bad DEPTH: %v", err)
		}
		if _, err := db.CreateRelation(args[1], uint32(nattrs), uint32(npages), uint32(depth), args[5]); err != nil {
			return err
		}
		db.GetJournal().Append(client, "create "+args[1])
		return nil
	case "insert":
		if len(args) != 2 {
			return fmt.Errorf("usage: insert NAME")
		}
		rel, err := db.GetRelation(args[1])
		if err != nil {
			return err
		}
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			pid, err := rel.Insert(line)
			if err != nil {
				return err
			}
			fmt.Println(pid)
			db.GetJournal().Append(client, "insert "+line+" into "+args[1])
		}
		return scanner.Err()
	case "select":
		if len(args) != 3 {
			return fmt.Errorf("usage: select NAME PATTERN")
		}
		rel, err := db.GetRelation(args[1])
		if err != nil {
			return err
		}
		q, err := rel.StartQuery(args[2])
		if err != nil {
			return err
		}
		defer q.Close()
		for {
			t, ok, err := q.Next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			fmt.Println(t)
		}
	case "stats":
		if len(args) != 2 {
			return fmt.Errorf("usage: stats NAME")
		}
		rel, err := db.GetRelation(args[1])
		if err != nil {
			return err
		}
		return rel.Stats(os.Stdout)
	case "drop":
		if len(args) != 2 {
			return fmt.Errorf("usage: drop NAME")
		}
		if err := db.DropRelation(args[1]); err != nil {
			return err
		}
		db.GetJournal().Append(client, "drop "+args[1])
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func main() {
	var promptFlag = flag.Bool("c", true, "use prompt?")
	var dbFlag = flag.String("db", "data/", "data folder")
	var serverFlag = flag.Bool("server", false, "serve the REPL over TCP")
	var portFlag = flag.Int("p", DEFAULT_PORT, "port number")
	flag.Parse()

	db, err := database.Open(*dbFlag)
	if err != nil {
		log.Fatal(err)
	}
	setupCloseHandler(db)

	if args := flag.Args(); len(args) > 0 {
		err := runCommand(db, args)
		if closeErr := db.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(1)
		}
		return
	}

	defer db.Close()
	r := database.DatabaseRepl(db)
	prompt := config.GetPrompt(*promptFlag)
	if *serverFlag {
		startServer(r, prompt, *portFlag)
	} else {
		r.Run(uuid.New(), prompt, nil, nil)
	}
}
