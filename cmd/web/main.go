package main

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates
var templatesFS embed.FS

const (
	cookieName  = "sumchat_token"
	defaultPort = "3000"
	defaultAPI  = "http://localhost:8080"
	envWebPort  = "SUMCHAT_WEB_PORT"
	envAPIURL   = "SUMCHAT_API_URL"
)

func main() {
	port := getEnv(envWebPort, defaultPort)
	apiBase := getEnv(envAPIURL, defaultAPI)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health (no auth, no templates)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Public
	r.Get("/login", loginForm)
	r.Post("/login", loginSubmit(apiBase))
	r.Get("/register", registerForm)
	r.Post("/register", registerSubmit(apiBase))
	r.Get("/logout", logout(apiBase))

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(apiBase))
		r.Get("/", redirectChat)
		r.Get("/chat", chatPage)
		r.Post("/chat", chatSubmit(apiBase))
	})

	log.Printf("web front end listening on :%s (api: %s)", port, apiBase)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}

func requireAuth(apiBase string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := r.Cookie(cookieName)
			if err != nil || token.Value == "" {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
				return
			}
			// Ask the API whether the cookie token is still valid, so expired
			// tokens send the user to login before any page loads.
			body, _ := json.Marshal(map[string]string{"token": token.Value})
			data, status, err := apiPost(apiBase, "/verify-token", "", body)
			if err == nil && status == http.StatusOK {
				var out struct {
					Valid bool `json:"valid"`
				}
				if json.Unmarshal(data, &out) == nil && out.Valid {
					next.ServeHTTP(w, r)
					return
				}
			}
			clearAuthAndRedirectToLogin(w, r)
		})
	}
}

func redirectChat(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/chat", http.StatusFound)
}

func loginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(cookieName); err == nil {
		http.Redirect(w, r, "/chat", http.StatusFound)
		return
	}
	renderTemplate(w, "login.html", map[string]string{})
}

func loginSubmit(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		if username == "" || password == "" {
			renderTemplate(w, "login.html", map[string]string{"Error": "Username and password are required"})
			return
		}

		body, _ := json.Marshal(map[string]string{"username": username, "password": password})
		data, status, err := apiPost(apiBase, "/login", "", body)
		if err != nil {
			renderTemplate(w, "login.html", map[string]string{"Error": "Cannot reach API: " + err.Error()})
			return
		}
		if status != http.StatusOK {
			renderTemplate(w, "login.html", map[string]string{"Error": apiErrorMessage(data)})
			return
		}

		finishLogin(w, r, data, "login.html")
	}
}

func registerForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, "register.html", map[string]string{})
}

func registerSubmit(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		body, _ := json.Marshal(map[string]string{
			"username": strings.TrimSpace(r.FormValue("username")),
			"email":    strings.TrimSpace(r.FormValue("email")),
			"password": r.FormValue("password"),
		})
		data, status, err := apiPost(apiBase, "/register", "", body)
		if err != nil {
			renderTemplate(w, "register.html", map[string]string{"Error": "Cannot reach API: " + err.Error()})
			return
		}
		if status != http.StatusCreated {
			renderTemplate(w, "register.html", map[string]string{"Error": apiErrorMessage(data)})
			return
		}

		// Registration returns a session token; the user lands in the chat.
		finishLogin(w, r, data, "register.html")
	}
}

// finishLogin extracts the token from a session response, sets the cookie and
// redirects into the app.
func finishLogin(w http.ResponseWriter, r *http.Request, data []byte, errTemplate string) {
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Token == "" {
		renderTemplate(w, errTemplate, map[string]string{"Error": "Invalid login response"})
		return
	}

	next := r.URL.Query().Get("next")
	if next == "" {
		next = "/chat"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    out.Token,
		Path:     "/",
		MaxAge:   24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, next, http.StatusFound)
}

func logout(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Best-effort: the cookie removal is what ends the browser session.
		if token, err := r.Cookie(cookieName); err == nil && token.Value != "" {
			_, _, _ = apiPost(apiBase, "/logout", token.Value, nil)
		}
		http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
		http.Redirect(w, r, "/login", http.StatusFound)
	}
}

// clearAuthAndRedirectToLogin clears the token cookie and redirects to login with next=current path.
// Call when the API returns 401 (expired or invalid token) so the user can sign in again.
func clearAuthAndRedirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	next := r.URL.Path
	if r.URL.RawQuery != "" {
		next += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, "/login?next="+url.QueryEscape(next), http.StatusFound)
}

func chatPage(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, "chat.html", map[string]interface{}{"Prompt": "", "Style": "brief"})
}

func chatSubmit(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := r.Cookie(cookieName)
		tok := ""
		if token != nil {
			tok = token.Value
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		prompt := strings.TrimSpace(r.FormValue("prompt"))
		style := r.FormValue("style")
		if prompt == "" {
			renderTemplate(w, "chat.html", map[string]interface{}{
				"Error": "Prompt must not be empty", "Prompt": "", "Style": style,
			})
			return
		}

		body, _ := json.Marshal(map[string]string{"prompt": prompt, "style": style})
		data, status, err := apiPost(apiBase, "/ask/summary", tok, body)
		if err != nil {
			renderTemplate(w, "chat.html", map[string]interface{}{
				"Error": "Cannot reach API: " + err.Error(), "Prompt": prompt, "Style": style,
			})
			return
		}
		if status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}
		if status != http.StatusOK {
			renderTemplate(w, "chat.html", map[string]interface{}{
				"Error": apiErrorMessage(data), "Prompt": prompt, "Style": style,
			})
			return
		}

		var out struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			renderTemplate(w, "chat.html", map[string]interface{}{
				"Error": "Invalid API response", "Prompt": prompt, "Style": style,
			})
			return
		}

		renderTemplate(w, "chat.html", map[string]interface{}{
			"Prompt": prompt,
			"Style":  style,
			"Reply":  out.Response,
		})
	}
}

// apiErrorMessage pulls the message out of the API error envelope, falling
// back to the raw body.
func apiErrorMessage(data []byte) string {
	var errResp struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &errResp) == nil && errResp.Message != "" {
		return errResp.Message
	}
	return string(data)
}

// apiPost performs POST to API with token and JSON body.
func apiPost(apiBase, path, token string, body []byte) ([]byte, int, error) {
	req, _ := http.NewRequest("POST", apiBase+path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return data, resp.StatusCode, nil
}

func renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	layout, _ := templatesFS.ReadFile("templates/layout.html")
	t := template.Must(template.New("").Parse(string(layout)))
	t = template.Must(t.New("").Parse(string(content)))
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("template execute: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
