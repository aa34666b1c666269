package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func countsCmd(args []string) {
	fs := flag.NewFlagSet("counts", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "agent id (optional)")
	_ = fs.Parse(args)

	q := url.Values{}
	if *actor != "" {
		q.Set("actor", *actor)
	}
	get(*baseURL, "/admin/v1/audit/counts", q)
}

func atCmd(args []string) {
	fs := flag.NewFlagSet("at", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	pos := fs.String("pos", "", "cell as x,y,z")
	_ = fs.Parse(args)

	if strings.TrimSpace(*pos) == "" {
		fmt.Fprintln(os.Stderr, "missing -pos")
		os.Exit(2)
	}
	get(*baseURL, "/admin/v1/audit/at", url.Values{"pos": {*pos}})
}

func get(baseURL, path string, q url.Values) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
