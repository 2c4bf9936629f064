/*
Package authsdk provides a client SDK for the techauth service.

# Overview

A Client is bound to one project through its API key and covers the public
endpoints: registration, email verification, login, password recovery and
project creation from an invitation.

	client := authsdk.NewClient("https://auth.example.com", "pk_...")

	reg, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:     "ada@example.com",
		Password:  "Str0ng!Pass",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})

	err = client.VerifyEmail(ctx, tokenFromEmail)

# Sessions

Login returns a Session holding the token pair. Session methods call the
bearer-protected endpoints and refresh the access token when it is about to
expire. The refresh token is not rotated; it identifies the session until
logout or expiry.

	session, profile, err := client.Login(ctx, "ada@example.com", "Str0ng!Pass")
	err = session.ChangePassword(ctx, "Str0ng!Pass", "N3w!Passw0rd")
	_, err = session.LogoutAll(ctx)

# Error Handling

Every non-2xx response is returned as *APIError with the HTTP status and a
machine readable code:

	if authsdk.IsCode(err, authsdk.ErrorCodeEmailNotVerified) {
		// prompt the user to check their inbox
	}
*/
package authsdk
