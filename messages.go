package gxbridge

// --------------------------------------------------------------------------
//
//	Gurux Ltd
//
// Filename:        $HeadURL$
//
// Version:         $Revision$,
//
//	$Date$
//	$Author$
//
// # Copyright (c) Gurux Ltd
//
// ---------------------------------------------------------------------------
//
//	DESCRIPTION
//
// This file is a part of Gurux Device Framework.
//
// Gurux Device Framework is Open Source software; you can redistribute it
// and/or modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2 of the License.
// Gurux Device Framework is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU General Public License for more details.
//
// More information of Gurux products: https://www.gurux.org
//
// This code is licensed under the GNU General Public License v2.
// Full text may be retrieved at http://www.gnu.org/licenses/gpl-2.0.txt
// ---------------------------------------------------------------------------

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:errcheck
func init() {
	// --- English (default) ---
	message.SetString(language.AmericanEnglish, "msg.port_open", "%s port open")
	message.SetString(language.AmericanEnglish, "msg.open_failed", "Failed to open %s: %v")
	message.SetString(language.AmericanEnglish, "msg.listening", "%s listening on %s")
	message.SetString(language.AmericanEnglish, "msg.connected", "%s connected from %s")
	message.SetString(language.AmericanEnglish, "msg.disconnected", "%s disconnected")
	message.SetString(language.AmericanEnglish, "msg.closing_connection", "Closing %s")
	message.SetString(language.AmericanEnglish, "msg.connection_closed", "%s closed")
	message.SetString(language.AmericanEnglish, "msg.receive_stalled", "%s: no free buffers, receive stalled")
	message.SetString(language.AmericanEnglish, "msg.receive_resumed", "%s: receive resumed")
	message.SetString(language.AmericanEnglish, "msg.send_failed", "Failed to send to %s: %v")
	message.SetString(language.AmericanEnglish, "msg.backlog_full", "%s: send backlog full, %d buffers dropped")
	message.SetString(language.AmericanEnglish, "msg.bridge_running", "Bridge running, %d peers")
	message.SetString(language.AmericanEnglish, "msg.bridge_stopping", "Closing...")
	message.SetString(language.AmericanEnglish, "msg.no_serial_port_selected", "No serial port selected. Please select a serial port.")

	// --- German (de) ---
	message.SetString(language.German, "msg.port_open", "%s Port geöffnet")
	message.SetString(language.German, "msg.open_failed", "%s konnte nicht geöffnet werden: %v")
	message.SetString(language.German, "msg.listening", "%s wartet auf %s")
	message.SetString(language.German, "msg.connected", "%s verbunden mit %s")
	message.SetString(language.German, "msg.disconnected", "%s getrennt")
	message.SetString(language.German, "msg.closing_connection", "%s wird geschlossen")
	message.SetString(language.German, "msg.connection_closed", "%s wurde geschlossen")
	message.SetString(language.German, "msg.receive_stalled", "%s: keine freien Puffer, Empfang angehalten")
	message.SetString(language.German, "msg.receive_resumed", "%s: Empfang fortgesetzt")
	message.SetString(language.German, "msg.send_failed", "Senden an %s fehlgeschlagen: %v")
	message.SetString(language.German, "msg.backlog_full", "%s: Sendepuffer voll, %d Puffer verworfen")
	message.SetString(language.German, "msg.bridge_running", "Brücke läuft, %d Gegenstellen")
	message.SetString(language.German, "msg.bridge_stopping", "Wird beendet...")
	message.SetString(language.German, "msg.no_serial_port_selected", "Kein serieller Port ausgewählt. Bitte wählen Sie einen seriellen Port aus.")

	// --- Finnish (fi) ---
	message.SetString(language.Finnish, "msg.port_open", "%s portti avattu")
	message.SetString(language.Finnish, "msg.open_failed", "Kohteen %s avaaminen epäonnistui: %v")
	message.SetString(language.Finnish, "msg.listening", "%s kuuntelee osoitteessa %s")
	message.SetString(language.Finnish, "msg.connected", "%s yhdistetty osoitteesta %s")
	message.SetString(language.Finnish, "msg.disconnected", "%s yhteys katkaistu")
	message.SetString(language.Finnish, "msg.closing_connection", "Suljetaan %s")
	message.SetString(language.Finnish, "msg.connection_closed", "%s suljettu")
	message.SetString(language.Finnish, "msg.receive_stalled", "%s: ei vapaita puskureita, vastaanotto pysäytetty")
	message.SetString(language.Finnish, "msg.receive_resumed", "%s: vastaanotto jatkuu")
	message.SetString(language.Finnish, "msg.send_failed", "Lähetys kohteeseen %s epäonnistui: %v")
	message.SetString(language.Finnish, "msg.backlog_full", "%s: lähetysjono täynnä, %d puskuria hylätty")
	message.SetString(language.Finnish, "msg.bridge_running", "Silta käynnissä, %d vastapuolta")
	message.SetString(language.Finnish, "msg.bridge_stopping", "Suljetaan...")
	message.SetString(language.Finnish, "msg.no_serial_port_selected", "Sarjaporttia ei ole valittu. Valitse sarjaportti.")

	// --- Swedish (sv) ---
	message.SetString(language.Swedish, "msg.port_open", "%s port öppnad")
	message.SetString(language.Swedish, "msg.open_failed", "Kunde inte öppna %s: %v")
	message.SetString(language.Swedish, "msg.listening", "%s lyssnar på %s")
	message.SetString(language.Swedish, "msg.connected", "%s ansluten från %s")
	message.SetString(language.Swedish, "msg.disconnected", "%s frånkopplad")
	message.SetString(language.Swedish, "msg.closing_connection", "Stänger %s")
	message.SetString(language.Swedish, "msg.connection_closed", "%s stängd")
	message.SetString(language.Swedish, "msg.receive_stalled", "%s: inga lediga buffertar, mottagning stoppad")
	message.SetString(language.Swedish, "msg.receive_resumed", "%s: mottagning återupptagen")
	message.SetString(language.Swedish, "msg.send_failed", "Sändning till %s misslyckades: %v")
	message.SetString(language.Swedish, "msg.backlog_full", "%s: sändkön full, %d buffertar kastade")
	message.SetString(language.Swedish, "msg.bridge_running", "Bryggan körs, %d motparter")
	message.SetString(language.Swedish, "msg.bridge_stopping", "Stänger...")
	message.SetString(language.Swedish, "msg.no_serial_port_selected", "Ingen seriell port vald. Välj en seriell port.")
}
