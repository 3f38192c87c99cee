package report

import (
	"html/template"
	"io"

	"cdr-exceptions/models"
)

// WriteHTML renders the distribution report: window header, table of
// contents, overview counters, then one table per exception group.
func WriteHTML(w io.Writer, a *models.Analysis, causeDescs map[int]string) error {
	d := Prepare(a, causeDescs)
	return htmlTemplate.Execute(w, d)
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Call exception report {{.WindowStart}} to {{.WindowEnd}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #999; padding: 0.3em 0.6em; text-align: left; }
th { background: #eee; }
h2.amber { color: #b8860b; }
h2.red { color: #b22222; }
.counts span { margin-right: 2em; }
</style>
</head>
<body>
<h1>Call exception report</h1>
<p>Window: {{.WindowStart}} to {{.WindowEnd}} UTC</p>
<p class="counts">
<span>Calls in window: {{.CallsInWindow}}</span>
<span>Rows skipped: {{.RowErrors}}</span>
<span>Orphan quality records: {{.OrphanQuality}}</span>
<span>Red: {{.RedCount}}</span>
<span>Amber: {{.AmberCount}}</span>
</p>
{{if .Empty}}
<p>No call records found in the input set.</p>
{{else}}
<h2>Contents</h2>
<ul>
{{range .Groups}}<li><a href="#{{.Anchor}}">{{.Title}} ({{.Count}})</a></li>
{{end}}</ul>

<h2>Calls per date</h2>
<table>
<tr><th>Date</th><th>Calls</th></tr>
{{range .Dates}}<tr><td>{{.Date}}</td><td>{{.Count}}</td></tr>
{{end}}</table>

<h2>Calls per device</h2>
<table>
<tr><th>Device</th><th>Calls</th></tr>
{{range .Devices}}<tr><td>{{.DeviceName}}</td><td>{{.Count}}</td></tr>
{{end}}</table>

<h2>Calls per cause code</h2>
<table>
<tr><th>Cause</th><th>Description</th><th>Calls</th></tr>
{{range .Causes}}<tr><td>{{.Cause}}</td><td>{{.Description}}</td><td>{{.Count}}</td></tr>
{{end}}</table>

{{range .Groups}}
<h2 id="{{.Anchor}}" class="{{.Severity}}">{{.Title}} &mdash; {{.Count}} instances ({{.Severity}})</h2>
<table>
<tr><th>Time (UTC)</th><th>Calling</th><th>Original called</th><th>Final called</th>
<th>Orig IP</th><th>Dest IP</th><th>Orig cause</th><th>Dest cause</th>
<th>Orig device</th><th>Dest device</th><th>Duration (s)</th>
<th>Orig quality</th><th>Dest quality</th></tr>
{{range .Calls}}<tr><td>{{.Time}}</td><td>{{.Calling}}</td><td>{{.OriginalCalled}}</td><td>{{.FinalCalled}}</td>
<td>{{.OrigIP}}</td><td>{{.DestIP}}</td><td>{{.OrigCause}}</td><td>{{.DestCause}}</td>
<td>{{.OrigDevice}}</td><td>{{.DestDevice}}</td><td>{{.Duration}}</td>
<td>{{.OrigQuality}}</td><td>{{.DestQuality}}</td></tr>
{{end}}</table>
{{end}}
{{end}}
</body>
</html>
`))
