package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/gookit/color"

	"github.com/omochice/chatlink/internal/client"
	"github.com/omochice/chatlink/pkg/protocol"
)

func printInbound(msg protocol.Inbound) {
	switch msg.Kind {
	case protocol.KindChat:
		chat, _ := msg.Chat()
		role := chat.Role
		if role == "" {
			role = "server"
		}
		color.Cyan.Printf("[%s]: ", role)
		fmt.Println(chat.Message)
	case protocol.KindError:
		e, _ := msg.Error()
		color.Red.Printf("*** error: %s ***\n", e.Error)
	default:
		data, err := json.Marshal(msg.Payload)
		if err != nil {
			return
		}
		color.Gray.Println(string(data))
	}
}

func printState(s client.State) {
	switch s {
	case client.StateOpen:
		color.Green.Println("*** connected ***")
	case client.StateClosed:
		color.Yellow.Println("*** disconnected, reconnecting ***")
	}
}
