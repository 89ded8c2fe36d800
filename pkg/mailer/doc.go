// Package mailer assembles ticket emails and delivers them over SMTP.
//
// The flow for one ticket is Compose, EncodePNG, [Assemble] and
// [SMTPTransport.Send]; [SendTicket] runs all four. Interactive callers
// submit that pipeline to a [Dispatcher], which runs at most one send at a
// time and always reports a result.
package mailer
