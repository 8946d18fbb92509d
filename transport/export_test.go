package transport

func (o Options) WithDefaults() Options {
	return o.withDefaults()
}
