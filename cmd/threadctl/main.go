// Command threadctl is a small operator client for a running daemon. It
// speaks the /v1 API and prints the raw JSON responses.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const usage = `usage: threadctl [-addr host:port] [-key api-key] <command> [arguments]

commands:
  list                                       list threads, newest activity first
  create -contact <id> [-name <name>]        create (or fetch) a contact thread
  group -id <gid> [-name <n>] [-members a,b] create a group thread
  show <thread>                              show one thread
  send <thread> <body>                       record an outgoing message
  recv <thread> <body>                       record an incoming message
  handshake <thread> <event>                 drive the friend-request machine
  inbound -contact <id> [-body <text>]       apply a peer's inbound request
  archive <thread>                           archive
  unarchive <thread>                         unarchive
  read <thread>                              mark everything read
  draft <thread> [text]                      get or set the draft
  mute <thread> <duration|off>               mute for a duration
  delete <thread>                            delete the thread and its history
`

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "daemon address")
	key := flag.String("key", os.Getenv("THREADDB_API_KEY"), "api key")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := &client{addr: *addr, key: *key, hc: &fasthttp.Client{Name: "threadctl"}}
	if err := run(c, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "threadctl: %v\n", err)
		os.Exit(1)
	}
}

func run(c *client, cmd string, args []string) error {
	switch cmd {
	case "list":
		return c.print(c.do("GET", "/v1/threads", nil))

	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		contact := fs.String("contact", "", "contact identifier")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(args)
		if *contact == "" {
			return fmt.Errorf("create: -contact is required")
		}
		body := map[string]string{"kind": "contact", "contact": *contact, "display_name": *name}
		return c.print(c.do("POST", "/v1/threads", body))

	case "group":
		fs := flag.NewFlagSet("group", flag.ExitOnError)
		id := fs.String("id", "", "group identifier")
		name := fs.String("name", "", "group name")
		members := fs.String("members", "", "comma separated member identifiers")
		_ = fs.Parse(args)
		if *id == "" {
			return fmt.Errorf("group: -id is required")
		}
		group := map[string]interface{}{"group_id": *id, "name": *name}
		if *members != "" {
			group["members"] = strings.Split(*members, ",")
		}
		return c.print(c.do("POST", "/v1/threads", map[string]interface{}{"kind": "group", "group": group}))

	case "show":
		id, err := one(cmd, args)
		if err != nil {
			return err
		}
		return c.print(c.do("GET", "/v1/threads/"+url.PathEscape(id), nil))

	case "send", "recv":
		if len(args) < 2 {
			return fmt.Errorf("%s: thread id and body required", cmd)
		}
		dir := "outgoing"
		if cmd == "recv" {
			dir = "incoming"
		}
		body := map[string]string{"body": strings.Join(args[1:], " "), "direction": dir}
		return c.print(c.do("POST", "/v1/threads/"+url.PathEscape(args[0])+"/messages", body))

	case "handshake":
		if len(args) != 2 {
			return fmt.Errorf("handshake: thread id and event required")
		}
		body := map[string]string{"event": args[1]}
		return c.print(c.do("POST", "/v1/threads/"+url.PathEscape(args[0])+"/handshake", body))

	case "inbound":
		fs := flag.NewFlagSet("inbound", flag.ExitOnError)
		contact := fs.String("contact", "", "contact identifier")
		text := fs.String("body", "", "request message body")
		_ = fs.Parse(args)
		if *contact == "" {
			return fmt.Errorf("inbound: -contact is required")
		}
		body := map[string]interface{}{"contact": *contact}
		if *text != "" {
			body["interaction"] = map[string]string{"body": *text}
		}
		return c.print(c.do("POST", "/v1/handshake/inbound", body))

	case "archive", "unarchive":
		id, err := one(cmd, args)
		if err != nil {
			return err
		}
		return c.print(c.do("POST", "/v1/threads/"+url.PathEscape(id)+"/"+cmd, nil))

	case "read":
		id, err := one(cmd, args)
		if err != nil {
			return err
		}
		return c.print(c.do("POST", "/v1/threads/"+url.PathEscape(id)+"/read", nil))

	case "draft":
		if len(args) == 0 {
			return fmt.Errorf("draft: thread id required")
		}
		path := "/v1/threads/" + url.PathEscape(args[0]) + "/draft"
		if len(args) == 1 {
			return c.print(c.do("GET", path, nil))
		}
		return c.print(c.do("PUT", path, map[string]string{"draft": strings.Join(args[1:], " ")}))

	case "mute":
		if len(args) != 2 {
			return fmt.Errorf("mute: thread id and duration (or \"off\") required")
		}
		var until int64
		if args[1] != "off" {
			d, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("mute: %w", err)
			}
			until = time.Now().Add(d).UnixNano()
		}
		body := map[string]int64{"muted_until_ts": until}
		return c.print(c.do("PUT", "/v1/threads/"+url.PathEscape(args[0])+"/mute", body))

	case "delete":
		id, err := one(cmd, args)
		if err != nil {
			return err
		}
		return c.print(c.do("DELETE", "/v1/threads/"+url.PathEscape(id), nil))

	default:
		flag.Usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func one(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s: exactly one thread id required", cmd)
	}
	return args[0], nil
}

type client struct {
	addr string
	key  string
	hc   *fasthttp.Client
}

func (c *client) do(method, path string, body interface{}) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://" + c.addr + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		req.SetBody(b)
	}

	if err := c.hc.DoTimeout(req, resp, 10*time.Second); err != nil {
		return nil, 0, err
	}
	out := append([]byte(nil), resp.Body()...)
	return out, resp.StatusCode(), nil
}

// print renders the response: pretty JSON on success, the error payload and
// a non-zero exit on 4xx/5xx.
func (c *client) print(body []byte, status int, err error) error {
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("%d: %s", status, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		fmt.Println("ok")
		return nil
	}
	var buf bytes.Buffer
	if json.Indent(&buf, body, "", "  ") == nil {
		fmt.Println(strings.TrimSpace(buf.String()))
		return nil
	}
	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}
