package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	goodshelf "github.com/goodshelf/goodshelf-go"
)

// loginWait is how long we give the user to finish authenticating in the
// browser before giving up.
const loginWait = 5 * time.Minute

type callbackResult struct {
	code string
	err  error
}

// runLogin binds the redirect URL's host and port locally, sends the user
// to the authorization server, and finishes the flow when the server
// redirects back with a code.
func runLogin(ctx context.Context, env *cmdEnv, args []string) error {
	ru, err := url.Parse(env.redirectURL)
	if err != nil {
		return fmt.Errorf("parsing redirect URL: %w", err)
	}

	loginURL, err := env.client.LoginURL()
	if err != nil {
		return err
	}

	resultChan := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(ru.Path, func(w http.ResponseWriter, req *http.Request) {
		if errMsg := req.FormValue("error"); errMsg != "" {
			http.Error(w, "Login failed, return to the terminal.", http.StatusBadRequest)
			resultChan <- callbackResult{err: fmt.Errorf("%s: %s", errMsg, req.FormValue("error_description"))}
			return
		}
		code := req.FormValue("code")
		if code == "" {
			http.Error(w, "No code in callback.", http.StatusBadRequest)
			resultChan <- callbackResult{err: errors.New("callback carried no code")}
			return
		}
		fmt.Fprintln(w, "Logged in, you can close this window.")
		resultChan <- callbackResult{code: code}
	})

	ln, err := net.Listen("tcp", ru.Host)
	if err != nil {
		return fmt.Errorf("binding %s for the callback: %w", ru.Host, err)
	}
	svr := &http.Server{Handler: mux}
	defer svr.Close()
	go func() {
		if err := svr.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			resultChan <- callbackResult{err: err}
		}
	}()

	fmt.Printf("Open the following URL in your browser to log in:\n\n  %s\n\n", loginURL)

	var result callbackResult
	select {
	case result = <-resultChan:
	case <-time.After(loginWait):
		return errors.New("timed out waiting for the browser login")
	case <-ctx.Done():
		return ctx.Err()
	}
	if result.err != nil {
		return result.err
	}

	ts, err := env.client.HandleCallback(ctx, result.code)
	if err != nil {
		return fmt.Errorf("finishing login: %w", err)
	}

	id, err := goodshelf.DecodeIdentity(ts.AccessToken)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (admin: %t), token expires %s\n",
		id.Username, id.IsAdmin(), ts.ExpiresAt.Local())
	return nil
}
