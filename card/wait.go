package card

import "cktap/cktap"

// Wait decrements AuthDelay by one step, used after a wrong-CVC attempt
// to work through the card's backoff before the next authenticated
// command.
func (c *Card) Wait() (authDelay int, err error) {
	var resp cktap.WaitResponse
	if err := c.client.Call(cktap.NewWaitRequest(), &resp); err != nil {
		return 0, err
	}
	c.AuthDelay = resp.AuthDelay
	return resp.AuthDelay, nil
}

// NFC reports the URL a phone's NFC tap against this card resolves to.
func (c *Card) NFC() (string, error) {
	var resp cktap.NFCResponse
	if err := c.client.Call(cktap.NewNFCRequest(), &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
