package client

// TableLen exposes the correlation table size to tests.
func (c *Client) TableLen() int {
	return c.table.len()
}
