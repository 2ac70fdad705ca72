// Copyright 2013 - 2015 Sebastian Ruml <sebastian.ruml@gmail.com>
// Copyright 2021 - 2022 Mendel Greenberg <mendel@chabad360.me>

//Package osc implements the slice of OpenSoundControl 1.0 that mixer control
//needs: single messages with fixed addresses, a small set of argument types,
//a UDP client and a UDP server with an exact-address dispatcher.
//
//Features
//
//- Supports OSC messages with the following TypeTags:
//
//	'i' (int32)
//	'f' (float32)
//	's' (string)
//	'b' ([]byte)
//	'T' (true)
//	'F' (false)
//	'N' (nil)
//
//Bundles, time tags and address pattern matching are not supported.
//
//Usage
//
//Sending through the socket a Server reads from, so replies come back to it:
//
//  conn, _ := net.ListenPacket("udp", ":10024")
//  d := &osc.Dispatcher{}
//  d.AddMethodFunc("/meters", func(msg *osc.Message) {
//      fmt.Println(msg)
//  })
//  go (&osc.Server{Dispatcher: d}).Serve(conn)
//
//  mixer, _ := net.ResolveUDPAddr("udp", "192.168.1.20:10023")
//  client := osc.NewClient(conn, mixer)
//  client.Send(osc.NewMessage("/xremote"))
package osc
