// Command calltool pokes the voice agent platform from a terminal: list
// agents, start test calls, fetch call results and sign sample webhooks.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/retell"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

const usage = `usage: calltool <command> [args]

commands:
  agents                            list agents
  agent <agent-id>                  show one agent
  web-call [agent-id]               start a web call (defaults to the first agent)
  phone-call <agent-id> <to-number> place an outbound call from SMS_FROM_NUMBER
  get-call <call-id>                fetch a call with transcript and analysis
  sign <payload-file>               print signature headers for a sample webhook
`

type callAPI interface {
	ListAgents(ctx context.Context) ([]retell.Agent, error)
	GetAgent(ctx context.Context, agentID string) (*retell.Agent, error)
	CreateWebCall(ctx context.Context, req retell.CreateWebCallRequest) (*retell.Call, error)
	CreatePhoneCall(ctx context.Context, req retell.CreatePhoneCallRequest) (*retell.Call, error)
	GetCall(ctx context.Context, callID string) (*retell.Call, error)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	timeout := flag.Duration("timeout", 30*time.Second, "overall request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	args := flag.Args()
	if len(args) > 0 && args[0] == "sign" {
		if err := sign(args[1:], os.Getenv("WEBHOOK_SECRET"), time.Now(), os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	client, err := retell.New(retell.Config{
		APIKey:     os.Getenv("RETELL_API_KEY"),
		BaseURL:    os.Getenv("RETELL_BASE_URL"),
		MaxRetries: 2,
		Logger:     logging.New(os.Getenv("LOG_LEVEL")),
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := run(ctx, client, args, os.Getenv("SMS_FROM_NUMBER"), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, api callAPI, args []string, fromNumber string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "agents":
		agents, err := api.ListAgents(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, agents)
	case "agent":
		if len(rest) != 1 {
			return errors.New("agent: expected <agent-id>")
		}
		agent, err := api.GetAgent(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, agent)
	case "web-call":
		agentID := ""
		if len(rest) > 0 {
			agentID = rest[0]
		} else {
			agents, err := api.ListAgents(ctx)
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				return errors.New("web-call: no agents on this account")
			}
			agentID = agents[0].AgentID
		}
		call, err := api.CreateWebCall(ctx, retell.CreateWebCallRequest{AgentID: agentID})
		if err != nil {
			return err
		}
		return printJSON(out, call)
	case "phone-call":
		if len(rest) != 2 {
			return errors.New("phone-call: expected <agent-id> <to-number>")
		}
		call, err := api.CreatePhoneCall(ctx, retell.CreatePhoneCallRequest{
			FromNumber:      fromNumber,
			ToNumber:        rest[1],
			OverrideAgentID: rest[0],
		})
		if err != nil {
			return err
		}
		return printJSON(out, call)
	case "get-call":
		if len(rest) != 1 {
			return errors.New("get-call: expected <call-id>")
		}
		call, err := api.GetCall(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, call)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// sign prints curl-ready headers so a saved payload can be replayed against a
// server that has WEBHOOK_SECRET set.
func sign(args []string, secret string, now time.Time, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("sign: expected <payload-file>")
	}
	if secret == "" {
		return errors.New("sign: WEBHOOK_SECRET is not set")
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	_, err = fmt.Fprintf(out, "-H '%s: %s' -H '%s: %s'\n",
		retell.HeaderTimestamp, ts,
		retell.HeaderSignature, retell.Sign(secret, ts, body))
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
