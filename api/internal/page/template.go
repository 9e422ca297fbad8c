package page

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; }
img.upload { max-width: 100%; border: 1px solid #ddd; }
.error { color: #b00020; }
pre.text { background: #f6f6f6; padding: 1rem; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<form method="post" action="/" enctype="multipart/form-data">
  <p><input type="file" name="file" accept=".jpg,.jpeg,.png,image/jpeg,image/png"></p>
  <p>
    <label>Engine
      <select name="engine">
      {{- range .Engines}}
        <option value="{{.}}"{{if eq . $.Engine}} selected{{end}}>{{.}}</option>
      {{- end}}
      </select>
    </label>
    <label><input type="checkbox" name="words" value="1"{{if .Words}} checked{{end}}> Detect words first</label>
  </p>
  <p><button type="submit">Extract</button></p>
</form>
{{- if .Error}}
<p class="error">{{.Error}}</p>
{{- end}}
{{- if .ImageURL}}
<figure>
  <img class="upload" src="{{.ImageURL}}" alt="Uploaded Image">
  <figcaption>Uploaded Image</figcaption>
</figure>
<h2>Extracted Text:</h2>
{{- if .Words}}
<ol id="predictedWords">
{{- range .Lines}}
  <li>{{.Text}} <small>({{.BBox.X0}},{{.BBox.Y0}})-({{.BBox.X1}},{{.BBox.Y1}})</small></li>
{{- end}}
</ol>
{{- else}}
<pre class="text">{{.Text}}</pre>
{{- end}}
{{- end}}
</body>
</html>
`
