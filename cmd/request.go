// MIT License

// Copyright (c) 2023 wetrycode

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wetrycode/ripext"
)

// ErrNoResponse the request was dropped before any response was delivered
var ErrNoResponse = errors.New("request finished without a response, see the log for the cause")

type requestOptions struct {
	method  string
	url     string
	path    string
	data    string
	headers []string
	timeout time.Duration
	tick    time.Duration
}

func newRequestCmd() *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Run one request through the extension and print the delivered response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.method = args[0]
			opts.url = args[1]
			return runRequest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "path appended to the url")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "json request body")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "extra header, \"Name: value\"")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", ripext.TransferTimeout+5*time.Second, "give up waiting for the response after this long")
	cmd.Flags().DurationVar(&opts.tick, "tick", 15*time.Millisecond, "host tick period")
	return cmd
}

func newRequestFromOptions(opts *requestOptions) (*ripext.Request, error) {
	requestOpts := []ripext.RequestOption{}
	if opts.data != "" {
		requestOpts = append(requestOpts, ripext.RequestWithBody([]byte(opts.data)))
	}
	for _, line := range opts.headers {
		name, value, ok := ripext.ParseHeaderLine(line)
		if !ok {
			return nil, fmt.Errorf("invalid header %q", line)
		}
		requestOpts = append(requestOpts, ripext.RequestWithHeader(name, value))
	}
	return ripext.NewRequest(ripext.RequestMethod(opts.method), opts.url, opts.path, requestOpts...)
}

// runRequest drives the host loop until the response is delivered, the
// request is dropped or the timeout passes
func runRequest(ctx context.Context, out io.Writer, opts *requestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	request, err := newRequestFromOptions(opts)
	if err != nil {
		return err
	}
	extension := ripext.NewExtension(ripext.ExtensionWithContext(ctx))
	defer extension.Close()

	var delivered *delivery
	err = extension.Execute(request, func(response *ripext.Response, _ interface{}) {
		delivered = newDelivery(response)
	}, nil)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()
	deadline := time.After(opts.timeout)
	for delivered == nil {
		select {
		case <-ticker.C:
			extension.OnGameFrame()
			if delivered == nil && extension.InFlight() == 0 {
				return ErrNoResponse
			}
		case <-deadline:
			return fmt.Errorf("no response after %s", opts.timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	delivered.print(out)
	logger.Debug(ripext.Map2String(extension.GetStatistic().GetAllStats()))
	return nil
}

// delivery copy of a response taken inside the completion handler
type delivery struct {
	status  int
	elapsed time.Duration
	headers []string
	body    string
	json    bool
}

func newDelivery(response *ripext.Response) *delivery {
	body := response.String()
	if response.Data != nil {
		body = response.Data.String()
	}
	return &delivery{
		status:  response.Status,
		elapsed: response.Elapsed,
		headers: response.Headers.Lines(),
		body:    body,
		json:    response.Data != nil,
	}
}

func (d *delivery) print(out io.Writer) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	status := fmt.Sprintf("%d", d.status)
	if d.status >= 200 && d.status < 300 {
		status = green(status)
	} else {
		status = red(status)
	}
	fmt.Fprintf(out, "%s %s\n", status, d.elapsed.Round(time.Millisecond))
	for _, line := range d.headers {
		name, value, _ := strings.Cut(line, ": ")
		fmt.Fprintf(out, "%s: %s\n", cyan(name), value)
	}
	fmt.Fprintln(out)
	if !d.json && d.body != "" {
		fmt.Fprintln(out, yellow("body is not a json document"))
	}
	fmt.Fprintln(out, d.body)
}
