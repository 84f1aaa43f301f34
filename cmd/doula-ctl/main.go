package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"doula/internal/ipc"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: doula-ctl [flags] <command> [args]

Commands:
  trigger          start listening without the wake phrase
  ask <question>   answer a typed question
  reset            abandon the current interaction
  status           print the assistant state
  history          print recent events

Flags:
`)
	cli.PrintDefaults()
}

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon control socket")
	cli.Usage = usage
	cli.Parse()

	if cli.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	reply, err := ipc.SendCommand(*socket, cli.Arg(0), cli.Args()[1:]...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "doula-daemon:", err)
		os.Exit(1)
	}

	if len(reply.Data) == 0 {
		fmt.Println("ok")
		return
	}

	var out bytes.Buffer
	if err := json.Indent(&out, reply.Data, "", "  "); err != nil {
		os.Stdout.Write(reply.Data)
		fmt.Println()
		return
	}
	fmt.Println(out.String())
}
