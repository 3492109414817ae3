package result

import (
	"fmt"
	"log/syslog"
	"strings"
	"text/template"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
)

const defaultSyslogFormat = "{{range $i, $k := .Keys}}{{if $i}} {{end}}{{$k}}={{index $.Row $k}}{{end}}"

// renderSyslog writes one syslog record per row, via stdlib log/syslog
// (RFC 3164). Each record's body is a text/template rendering of the
// sink's format attribute (default: space-separated key=value pairs).
func renderSyslog(s *config.SyslogResult, rows []*analyzer.Row) error {
	rows, err := filterRows(s.Filter, rows)
	if err != nil {
		return err
	}
	cols := keyColumns(s.Keys, rows)
	network, addr := syslogAddr(s)

	writer, err := syslog.Dial(network, addr, syslog.LOG_INFO|syslog.LOG_USER, "parambench")
	if err != nil {
		return errs.New(errs.Execution, fmt.Errorf("syslog dial %s %s: %w", network, addr, err))
	}
	defer writer.Close()

	format := s.Format
	if format == "" {
		format = defaultSyslogFormat
	}
	tmpl, err := template.New("syslog").Parse(format)
	if err != nil {
		return errs.New(errs.Config, fmt.Errorf("syslog format: %w", err))
	}

	for _, row := range rows {
		data := syslogData(cols, row)
		var b strings.Builder
		if err := tmpl.Execute(&b, data); err != nil {
			return errs.New(errs.Execution, fmt.Errorf("syslog format: %w", err))
		}
		if _, err := writer.Write([]byte(b.String())); err != nil {
			return errs.New(errs.Execution, fmt.Errorf("syslog write: %w", err))
		}
	}
	return nil
}

// syslogAddr resolves the sink's target into a net.Dial network/address
// pair: a unix socket when set, else UDP to host:port, defaulting the
// port to 541 when unset.
func syslogAddr(s *config.SyslogResult) (network, addr string) {
	if s.Socket != "" {
		return "unix", s.Socket
	}
	if s.Host == "" {
		return "", ""
	}
	port := s.Port
	if port == 0 {
		port = 541
	}
	return "udp", fmt.Sprintf("%s:%d", s.Host, port)
}

type syslogTemplateData struct {
	Keys []string
	Row  map[string]string
}

func syslogData(cols []column, row *analyzer.Row) syslogTemplateData {
	keys := make([]string, len(cols))
	vals := make(map[string]string, len(cols))
	for i, c := range cols {
		keys[i] = c.title
		vals[c.title] = cellValue(c, row)
	}
	return syslogTemplateData{Keys: keys, Row: vals}
}
