package mcp_test

import (
	"io"
	"testing"

	"github.com/arborwell/mcprelay"
)

// connectedTransports returns a pair of in-memory StdioTransports wired to each other, so a
// *mcp.Server bound to one and a *mcp.Client bound to the other can exchange frames without a
// real process boundary.
func connectedTransports(t *testing.T) (server, client mcp.Transport) {
	t.Helper()

	srvReader, srvWriter := io.Pipe()
	cliReader, cliWriter := io.Pipe()

	return mcp.NewStdioTransport(srvReader, cliWriter), mcp.NewStdioTransport(cliReader, srvWriter)
}
