package domain

// Param is the logical name of a raster channel in the tile store. Each tier has
// a raw-values channel and a colorized channel.
type Param string

const (
	ParamValues5mn Param = "mosaiques_MF_LAME_D_EAU"
	ParamColor5mn  Param = "radaric_MF"
	ParamValues1h  Param = "ac60radaric_MF"
	ParamColor1h   Param = "colorac60radaric_MF"
	ParamValues3h  Param = "ac3hradaricval_MF"
	ParamColor3h   Param = "ac3hradaric_MF"
	ParamValues6h  Param = "ac6hradaricval_MF"
	ParamColor6h   Param = "ac6hradaric_MF"
	ParamValues12h Param = "ac12hradaricval_MF"
	ParamColor12h  Param = "ac12hradaric_MF"
	ParamValues24h Param = "ac24hradaricval_MF"
	ParamColor24h  Param = "ac24hradaric_MF"
	ParamValues72h Param = "ac72hradaricval_MF"
	ParamColor72h  Param = "ac72hradaric_MF"
)

// ParamKey scopes a param to a zone: "{param}_{zone}". It is the file name
// prefix of every artifact and the watermark key.
func ParamKey(p Param, z Zone) string {
	return string(p) + "_" + string(z)
}
