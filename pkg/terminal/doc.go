// Package terminal implements the message terminal: the inbox and peer list
// shared with the network link, input debouncing, and the screen state
// machine that drives a 4x20 character display from five input lines.
//
// Screens:
//
//	Menu → Inbox → MessageOptions → QuickReply | Compose
//	Menu → Peers → ClientOptions → QuickReply | Compose
//
// Left returns to Menu from Inbox, MessageOptions and Peers. Sending from
// QuickReply or Compose, or choosing Cancel, also returns to Menu.
package terminal
