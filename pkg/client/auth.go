package client

import "context"

// AuthResource exchanges operator credentials for a session token.
type AuthResource struct{ c *Client }

// Login authenticates an operator. Pass the returned AccessToken to
// WithBearerToken to act with the operator's session.
func (r *AuthResource) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" {
		return nil, missing("email")
	}
	if password == "" {
		return nil, missing("password")
	}
	var out Session
	body := map[string]string{"email": email, "password": password}
	if err := r.c.post(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs an operator in and returns a Client that acts with the new
// session. opts configure both the login call and the returned Client.
//
//	aw, sess, err := client.Login(ctx, "ops@example.com", password,
//	    client.WithBaseURL("http://localhost:8080/v1"))
func Login(ctx context.Context, email, password string, opts ...Option) (*Client, *Session, error) {
	anon, err := newClient(Config{}, opts...)
	if err != nil {
		return nil, nil, err
	}
	sess, err := anon.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	authed, err := NewWithConfig(anon.cfg, append(opts[:len(opts):len(opts)], WithBearerToken(sess.AccessToken))...)
	if err != nil {
		return nil, nil, err
	}
	return authed, sess, nil
}
