// chatprobe polls a running server's health endpoints and prints latency
// samples. Useful as a lightweight uptime check next to a deployment.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	target := flag.String("target", "http://localhost:8080", "base URL of the server to probe")
	interval := flag.Duration("interval", 5*time.Second, "time between probes")
	count := flag.Int("count", 0, "number of probes to run (0 = forever)")
	timeout := flag.Duration("timeout", 2*time.Second, "per-probe timeout")
	flag.Parse()

	client := &fasthttp.Client{
		Name:         "sealchat-probe",
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}

	failures := 0
	for i := 0; *count == 0 || i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		for _, path := range []string{"/healthz", "/readyz"} {
			status, elapsed, err := probe(client, *target+path, *timeout)
			if err != nil {
				failures++
				fmt.Printf("%s %s error: %v\n", time.Now().Format(time.RFC3339), path, err)
				continue
			}
			if status != fasthttp.StatusOK {
				failures++
			}
			fmt.Printf("%s %s %d %s\n", time.Now().Format(time.RFC3339), path, status, elapsed.Round(time.Microsecond))
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func probe(client *fasthttp.Client, url string, timeout time.Duration) (int, time.Duration, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	start := time.Now()
	if err := client.DoTimeout(req, resp, timeout); err != nil {
		return 0, 0, err
	}
	return resp.StatusCode(), time.Since(start), nil
}
