/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Command kvd is the CLI client talking the C8 wire protocol to kvd-server.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/launix-de/kvd/engine"
	"github.com/launix-de/kvd/wire"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "get":
		runGet(args)
	case "set":
		runSet(args)
	case "rm":
		runRemove(args)
	case "export":
		runExport(args)
	case "repl":
		runRepl(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvd <get|set|rm|export|repl> [flags] [args]")
}

func dial(addr string) (*wire.Reader, *wire.Writer, net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, nil, nil, err
	}
	return wire.NewReader(conn), wire.NewWriter(conn), conn, nil
}

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:4000", "server address")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvd get <key> [--addr]")
		os.Exit(2)
	}
	key := fs.Arg(0)

	r, w, conn, err := dial(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := w.WriteRequest(wire.NewGetRequest(key)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	resp, err := r.ReadResponse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !resp.Ok {
		fmt.Fprintln(os.Stderr, resp.Err)
		os.Exit(1)
	}
	if !resp.Found {
		// a miss is not an error: exit 0, "Key not found" on stdout.
		fmt.Println("Key not found")
		return
	}
	fmt.Println(resp.Value)
}

func runSet(args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:4000", "server address")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: kvd set <key> <value> [--addr]")
		os.Exit(2)
	}
	key, value := fs.Arg(0), fs.Arg(1)

	r, w, conn, err := dial(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := w.WriteRequest(wire.NewSetRequest(key, value)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	resp, err := r.ReadResponse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !resp.Ok {
		fmt.Fprintln(os.Stderr, resp.Err)
		os.Exit(1)
	}
}

func runRemove(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:4000", "server address")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvd rm <key> [--addr]")
		os.Exit(2)
	}
	key := fs.Arg(0)

	r, w, conn, err := dial(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := w.WriteRequest(wire.NewRemoveRequest(key)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	resp, err := r.ReadResponse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !resp.Ok {
		fmt.Fprintln(os.Stderr, resp.Err)
		os.Exit(1)
	}
}

// runExport is a local, offline operation: it reads directly from the
// data directory (no server round-trip) since the hot server process
// and the backup tool are never expected to run against the directory
// at the same moment, per the spec's single-owner assumption.
func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dataDir := fs.String("data-dir", "./data", "data directory to archive")
	out := fs.String("out", "backup.tar.xz", "output archive path")
	fs.Parse(args)

	if err := engine.Export(*dataDir, *out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRepl(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:4000", "server address")
	fs.Parse(args)

	r, w, conn, err := dial(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	rl, err := readline.New("kvd> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		var req wire.Request
		switch strings.ToLower(fields[0]) {
		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			req = wire.NewGetRequest(fields[1])
		case "set":
			if len(fields) != 3 {
				fmt.Println("usage: set <key> <value>")
				continue
			}
			req = wire.NewSetRequest(fields[1], fields[2])
		case "rm":
			if len(fields) != 2 {
				fmt.Println("usage: rm <key>")
				continue
			}
			req = wire.NewRemoveRequest(fields[1])
		case "quit", "exit":
			return
		default:
			fmt.Println("commands: get <key>, set <key> <value>, rm <key>, quit")
			continue
		}

		if err := w.WriteRequest(req); err != nil {
			fmt.Println(err)
			return
		}
		resp, err := r.ReadResponse()
		if err != nil {
			fmt.Println(err)
			return
		}
		printReplResponse(resp)
	}
}

func printReplResponse(resp wire.Response) {
	if !resp.Ok {
		fmt.Println("error:", resp.Err)
		return
	}
	switch resp.Kind {
	case "get":
		if !resp.Found {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(resp.Value)
	default:
		fmt.Println("ok")
	}
}
