package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/focusflow/apiclient"
	"github.com/jmcleod/focusflow/auth"
)

var (
	requestData  string
	requestQuery []string
)

var requestCmd = &cobra.Command{
	Use:   "request METHOD ENDPOINT",
	Short: "Send an authorized request and print the JSON response",
	Example: `  focusflow request GET /api/ToDo --query date=2026-03-01
  focusflow request POST /api/tags --data '{"name":"deep-work"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, args[0], args[1])
	},
}

var getCmd = &cobra.Command{
	Use:   "get ENDPOINT",
	Short: "Send an authorized GET request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, http.MethodGet, args[0])
	},
}

func parseMethod(m string) (string, error) {
	m = strings.ToUpper(m)
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("unsupported method %q", m)
}

func parseQuery(pairs []string) (url.Values, error) {
	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("query %q must look like key=value", p)
		}
		q.Add(k, v)
	}
	return q, nil
}

func runRequest(cmd *cobra.Command, method, endpoint string) error {
	method, err := parseMethod(method)
	if err != nil {
		return err
	}
	query, err := parseQuery(requestQuery)
	if err != nil {
		return err
	}
	var body any
	if requestData != "" {
		if !json.Valid([]byte(requestData)) {
			return fmt.Errorf("--data must be valid JSON")
		}
		body = json.RawMessage(requestData)
	}

	return withApp(cmd, true, func(a *app) error {
		resp, err := auth.Call[json.RawMessage](cmd.Context(), a.auth, method, endpoint, body, apiclient.WithQuery(query))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp.Data)
	})
}

func printJSON(w io.Writer, data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func init() {
	rootCmd.AddCommand(requestCmd, getCmd)
	requestCmd.Flags().StringVarP(&requestData, "data", "d", "", "JSON request body")
	for _, c := range []*cobra.Command{requestCmd, getCmd} {
		c.Flags().StringArrayVarP(&requestQuery, "query", "q", nil, "Query parameter key=value (repeatable)")
	}
}
