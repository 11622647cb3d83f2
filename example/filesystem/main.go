package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arborwell/mcprelay"
	"github.com/arborwell/mcprelay/servers/filesystem"
)

func main() {
	path := flag.String("path", "", "Path to process (required)")
	flag.StringVar(path, "p", "", "Path to process (required) (shorthand)")

	flag.Parse()

	if *path == "" {
		fmt.Println("Error: path is required")
		flag.Usage()
		os.Exit(1)
	}

	srvReader, srvWriter := io.Pipe()
	cliReader, cliWriter := io.Pipe()

	cliTransport := mcp.NewStdioTransport(cliReader, srvWriter)
	srvTransport := mcp.NewStdioTransport(srvReader, cliWriter)

	server, err := filesystem.NewServer([]string{*path})
	if err != nil {
		fmt.Println("Error: failed to create filesystem server:", err)
		os.Exit(1)
	}

	srv := mcp.NewServer(mcp.Info{
		Name:    "filesystem",
		Version: "1.0",
	},
		mcp.WithServerPingInterval(30*time.Second),
		mcp.WithToolsCapability(server),
	)

	ctx := context.Background()
	if err := srv.Start(ctx, srvTransport); err != nil {
		fmt.Println("Error: failed to start filesystem server:", err)
		os.Exit(1)
	}

	cli := newClient(cliTransport)
	go cli.run()

	<-cli.done

	if err := srv.Stop(context.Background()); err != nil {
		fmt.Printf("Server forced to shutdown: %v", err)
		return
	}
}
