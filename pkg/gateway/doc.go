// Package gateway is a client of the 42 Bangkok gateway account API.
//
// Create client
//
//	client, err := gateway.NewDefaultClient("https://gateway.42bangkok.com")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Authenticate on behalf of a cadet (trusted services only)
//
//	client.SetServiceToken(os.Getenv("GATEWAY_SERVICE_TOKEN"))
//
//	session, err := client.Login(gateway.Credentials{Provider: "42", UID: "gabitbol"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Get the current user
//
//	me, err := client.Me()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Username:", me.Username)
//
// Refresh the access token before it expires
//
//	if session.AccessExpiredAt(time.Now().Add(time.Hour)) {
//		if session, err = client.Refresh(); err != nil {
//			log.Fatal(err)
//		}
//	}
package gateway
