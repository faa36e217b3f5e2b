// Package page renders the HTML pages of the chore tracker as templ
// components.
package page

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

var layout = template.Must(template.New("layout").Parse(`<!doctype html>
<html lang="cs">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/static/css/app.css">
</head>
<body>
{{template "body" .}}
</body>
</html>
`))

var loginTmpl = template.Must(template.Must(layout.Clone()).Parse(`{{define "body"}}
<main class="card narrow">
  <h1>Domácí úkoly</h1>
  <form id="login-form" method="post" action="/api/login">
    <label>E-mail <input type="email" name="username" autocomplete="username" required></label>
    <label>Heslo <input type="password" name="password" autocomplete="current-password" required></label>
    <button type="submit">Přihlásit</button>
    <p id="login-error" class="error" hidden></p>
  </form>
</main>
<script src="/static/js/login.js"></script>
{{end}}`))

var homeTmpl = template.Must(template.Must(layout.Clone()).Parse(`{{define "body"}}
<header class="bar">
  <span id="who">{{.Email}}</span>
  <a href="/api/logout" id="logout">Odhlásit</a>
</header>
<main>
  <section class="card">
    <h2>Úkoly</h2>
    <ul id="chores">
      {{range .Chores}}<li><button class="chore" data-task="{{.}}">{{.}}</button></li>
      {{end}}
    </ul>
    <button id="undo" class="secondary">Vrátit poslední</button>
  </section>
  <section class="card">
    <h2>Dnes splněno</h2>
    <ul id="today"></ul>
  </section>
  <section class="card">
    <h2>Tento měsíc</h2>
    <ul id="month"></ul>
  </section>
  <section class="card">
    <h2>Všichni</h2>
    <div id="everyone"></div>
  </section>
</main>
<script src="/static/js/app.js"></script>
{{end}}`))

type loginData struct {
	Title string
}

type homeData struct {
	Title  string
	Email  string
	Chores []string
}

func render(t *template.Template, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.Execute(w, data)
	})
}

func LoginPage() templ.Component {
	return render(loginTmpl, loginData{Title: "Přihlášení"})
}

// HomePage is the dashboard of the logged-in user. Lists are filled in by
// static/js/app.js from the JSON API.
func HomePage(email string, chores []string) templ.Component {
	return render(homeTmpl, homeData{Title: "Domácí úkoly", Email: email, Chores: chores})
}
